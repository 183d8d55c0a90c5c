package vibeToken

import (
	"fmt"
	"regexp"
)

var alreadyClaimedPattern = regexp.MustCompile(`(?i)already claimed`)

func isAlreadyClaimedError(err error) bool {
	return err != nil && alreadyClaimedPattern.MatchString(err.Error())
}

// ContractCallError wraps a failed remote call against the registry.
type ContractCallError struct {
	Method string
	Err    error
}

func (e *ContractCallError) Error() string {
	return fmt.Sprintf("contract call %s failed: %v", e.Method, e.Err)
}

func (e *ContractCallError) Unwrap() error {
	return e.Err
}

// AlreadyClaimedError is returned by Claim when the registry rejects the call
// because the sender has claimed before.
type AlreadyClaimedError struct {
	Err error
}

func (e *AlreadyClaimedError) Error() string {
	return "address has already claimed"
}

func (e *AlreadyClaimedError) Unwrap() error {
	return e.Err
}

func wrapCallError(method string, err error) error {
	if method == Method_ClaimTokens && isAlreadyClaimedError(err) {
		return &AlreadyClaimedError{Err: err}
	}
	return &ContractCallError{Method: method, Err: err}
}
