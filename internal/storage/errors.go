package storage

import (
	"errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

var (
	// ErrInvalidKey is returned before any request is sent for keys a backend cannot address.
	ErrInvalidKey = errors.New("invalid object key")

	errNotConfigured = errors.New("storage client is not configured")
)

// S3 error codes that never succeed on a repeat of the same request.
var rejectedCodes = map[string]bool{
	"AccessDenied":                 true,
	"AllAccessDisabled":            true,
	"AuthorizationHeaderMalformed": true,
	"ExpiredToken":                 true,
	"InvalidAccessKeyId":           true,
	"InvalidArgument":              true,
	"InvalidBucketName":            true,
	"InvalidRequest":               true,
	"InvalidToken":                 true,
	"MethodNotAllowed":             true,
	"SignatureDoesNotMatch":        true,
}

// Client-fault codes that are still worth another attempt.
var throttleCodes = map[string]bool{
	"RequestTimeout":           true,
	"RequestTimeTooSkewed":     true,
	"SlowDown":                 true,
	"Throttling":               true,
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
}

// IsPermanent reports whether err is a rejection that a retry cannot fix:
// missing objects, invalid keys, an unconfigured client, or a 4xx answer
// other than throttling and request timeouts.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) || errors.Is(err, errNotConfigured) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if throttleCodes[code] {
			return false
		}
		if rejectedCodes[code] || apiErr.ErrorFault() == smithy.FaultClient {
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && isClientStatus(respErr.HTTPStatusCode()) {
		return true
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		if throttleCodes[minioErr.Code] {
			return false
		}
		return rejectedCodes[minioErr.Code] || isClientStatus(minioErr.StatusCode)
	}
	return false
}

func isClientStatus(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout &&
		status != http.StatusTooManyRequests
}
