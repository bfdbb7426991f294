package handler

import (
	"errors"

	"bank-ledger/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

// bindError maps a request binding failure to an application error. Amount and
// account type failures keep their ledger error codes.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "amount":
				return apperror.ErrInvalidAmount()
			case "account_type":
				return apperror.ErrInvalidAccountType()
			}
		}
	}
	return apperror.Validation(err.Error())
}
