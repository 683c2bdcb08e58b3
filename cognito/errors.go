package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/identity"
	"github.com/aws/smithy-go"
)

// call names the kind of request an error came from. NotAuthorizedException
// and UserNotFoundException read differently depending on it.
type call int

const (
	callAccount call = iota
	callAuth
	callChallenge
	callSession
)

// mapError translates a Cognito API error into the identity error taxonomy.
// The original error stays in the chain for callers that need the detail.
func mapError(err error, c call) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}

	var target error
	switch apiErr.ErrorCode() {
	case "NotAuthorizedException":
		switch c {
		case callChallenge:
			target = identity.ErrExpiredSession
		case callSession:
			target = identity.ErrNoSession
		default:
			target = identity.ErrInvalidCredentials
		}
	case "UserNotFoundException":
		target = identity.ErrNotFound
		if c == callAuth {
			target = identity.ErrInvalidCredentials
		}
	case "UsernameExistsException", "AliasExistsException":
		target = identity.ErrAlreadyExists
	case "UserNotConfirmedException":
		target = identity.ErrNotConfirmed
	case "CodeMismatchException", "ExpiredCodeException":
		target = identity.ErrInvalidCode
	case "InvalidPasswordException", "InvalidParameterException":
		target = identity.ErrInvalidInput
	case "TooManyRequestsException", "LimitExceededException", "TooManyFailedAttemptsException":
		target = identity.ErrRateLimited
	case "PasswordResetRequiredException":
		target = identity.ErrInvalidCredentials
	default:
		target = identity.ErrUnavailable
	}
	return fmt.Errorf("%w: %w", target, err)
}
