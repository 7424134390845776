package server

type statusResponse struct {
	Backend            string `json:"backend"`
	Bucket             string `json:"bucket"`
	RootFolder         string `json:"root_folder"`
	SupportsVersioning bool   `json:"supports_versioning"`
}

type typeResponse struct {
	Name             string `json:"name"`
	Group            string `json:"group"`
	MetadataFilename string `json:"metadata_filename"`
}

type typesResponse struct {
	Types []typeResponse `json:"types"`
}

type listResponse struct {
	Type string           `json:"type"`
	Keys map[string]int64 `json:"keys"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
