package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateModel checks a model's struct constraints: a non-empty name and
// well-formed tags.
func ValidateModel(m *ResourceModel) error {
	if m == nil {
		return errors.New("resource model is missing")
	}
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid resource model: %s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s exceeds %s characters", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
