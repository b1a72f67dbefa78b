package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/services"
)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formError carries per-field validation failures keyed by form field name.
type formError struct {
	fields map[string]string
}

func (e *formError) Error() string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	return "invalid form fields: " + strings.Join(names, ", ")
}

func validateForm(form any) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	fields := make(map[string]string, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return &formError{fields: fields}
}

func (h *Handlers) writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *formError
	if errors.As(err, &fe) {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Invalid form submission", Fields: fe.fields})
		return
	}
	h.writeError(w, r, http.StatusBadRequest, err.Error())
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func shippingForm(r *http.Request) *models.ShippingSnapshot {
	return &models.ShippingSnapshot{
		FullName: formValue(r, "shipping_full_name"),
		Email:    formValue(r, "shipping_email"),
		Address1: formValue(r, "shipping_address1"),
		Address2: formValue(r, "shipping_address2"),
		City:     formValue(r, "shipping_city"),
		Zipcode:  formValue(r, "shipping_zipcode"),
		Country:  formValue(r, "shipping_country"),
	}
}

func paymentForm(r *http.Request) *models.PaymentDetails {
	return &models.PaymentDetails{
		CardName:    formValue(r, "card_name"),
		CardNumber:  formValue(r, "card_number"),
		CardExpDate: formValue(r, "card_exp_date"),
		CardCVV:     formValue(r, "card_cvv"),
	}
}

func registerForm(r *http.Request) (services.RegisterInput, error) {
	input := services.RegisterInput{
		Username:  formValue(r, "username"),
		Email:     formValue(r, "email"),
		FirstName: formValue(r, "first_name"),
		LastName:  formValue(r, "last_name"),
		Password:  r.PostFormValue("password"),
	}
	if err := validateForm(input); err != nil {
		return input, err
	}
	if r.PostFormValue("password_confirm") != input.Password {
		return input, &formError{fields: map[string]string{"password_confirm": "eqfield"}}
	}
	return input, nil
}

// productIDField reads a positive product id form field.
func productIDField(r *http.Request, key string) (int64, error) {
	raw := formValue(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return id, nil
}

func quantityField(r *http.Request, key string) (int, error) {
	raw := formValue(r, key)
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if qty < 1 || qty > cart.MaxQuantity {
		return 0, fmt.Errorf("%s must be between 1 and %d", key, cart.MaxQuantity)
	}
	return qty, nil
}
