package api

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain scopes the reasons attached to registry statuses.
const ErrorDomain = "medkeeper"

// Stable error reasons carried in an ErrorInfo status detail.
const (
	ReasonArgumentMismatch = "ARGUMENT_MISMATCH"
)

// ReasonError builds a status error carrying reason as an ErrorInfo detail.
// If the detail cannot be attached the plain status is returned.
func ReasonError(code codes.Code, msg, reason string) error {
	st := status.New(code, msg)
	withInfo, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain})
	if err != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// Reason returns the registry reason attached to st, or "" if none.
func Reason(st *status.Status) string {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
