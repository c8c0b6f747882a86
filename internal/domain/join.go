package domain

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MaxRoomIDLen = 64
	MaxNameLen   = 36
)

var (
	ErrRoomIDInvalid = errors.New("invalid room id")
	ErrNameInvalid   = errors.New("invalid name")
)

var validate = newValidator()

// Lengths count runes, so non-Latin ids get the same budget.
var (
	roomRules = fmt.Sprintf("required,max=%d,printable", MaxRoomIDLen)
	nameRules = fmt.Sprintf("required,max=%d", MaxNameLen)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// printable accepts any Unicode letters, marks, digits, punctuation,
	// symbols and ASCII space.
	_ = v.RegisterValidation("printable", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsPrint(r) {
				return false
			}
		}
		return true
	})
	return v
}

// JoinRequest is what a client supplies when opening a signaling connection.
type JoinRequest struct {
	Room string
	Name string
}

func (r JoinRequest) Validate() error {
	if err := validate.Var(r.Room, roomRules); err != nil {
		return fmt.Errorf("%w: %s", ErrRoomIDInvalid, failedTag(err))
	}
	if err := validate.Var(r.Name, nameRules); err != nil {
		return fmt.Errorf("%w: %s", ErrNameInvalid, failedTag(err))
	}
	return nil
}

func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return err.Error()
}
