package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/user/integration-hub/internal/domain"
)

// AddCustomerRequest is the validated input for creating a customer
// upstream. Names must be non-blank, not merely non-empty: a
// whitespace-only name would otherwise reach SOAP and persist a blank
// aggregate.
type AddCustomerRequest struct {
	FirstName string `json:"first_name" validate:"required,notblank"`
	LastName  string `json:"last_name" validate:"required,notblank"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

// AddCustomerResult reports the SOAP outcome together with the id the local
// aggregate was persisted under.
type AddCustomerResult struct {
	CustomerID  string
	SoapSuccess bool
	SoapMessage string
}

// AddCustomerUseCase creates a customer via the SOAP upstream and persists a
// local aggregate keyed by the assigned id, falling back to a placeholder id
// when the upstream did not assign one.
type AddCustomerUseCase struct {
	soap     domain.SoapClient
	store    domain.CustomerStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAddCustomerUseCase(soap domain.SoapClient, store domain.CustomerStore, logger *slog.Logger) *AddCustomerUseCase {
	validate := validator.New()
	// Registration only fails for an empty tag name.
	_ = validate.RegisterValidation("notblank", validators.NotBlank)

	return &AddCustomerUseCase{
		soap:     soap,
		store:    store,
		validate: validate,
		logger:   logger.With("component", "add_customer"),
	}
}

// AddCustomer validates the request, performs the SOAP call and persists the
// local row unconditionally on the structured SOAP result.
func (uc *AddCustomerUseCase) AddCustomer(ctx context.Context, req AddCustomerRequest) (AddCustomerResult, error) {
	if err := uc.validate.Struct(req); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			field := strings.ToLower(errs[0].Field())
			return AddCustomerResult{}, &domain.ValidationError{Field: field, Reason: errs[0].Tag()}
		}
		return AddCustomerResult{}, &domain.ValidationError{Field: "request", Reason: err.Error()}
	}

	soapResult := uc.soap.AddCustomer(ctx, req.FirstName, req.LastName, req.Email, req.Phone)

	customerID := soapResult.CustomerID
	if customerID == "" {
		customerID = domain.PlaceholderCustomerID
	}

	aggregate := domain.CustomerAggregate{
		ExternalID: customerID,
		Name:       req.FirstName + " " + req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Status:     "ACTIVE",
	}
	if err := uc.store.SaveCustomer(ctx, aggregate); err != nil {
		return AddCustomerResult{}, err
	}

	uc.logger.Info("added customer", "customer_id", customerID, "soap_success", soapResult.Success)
	return AddCustomerResult{
		CustomerID:  customerID,
		SoapSuccess: soapResult.Success,
		SoapMessage: soapResult.Message,
	}, nil
}
