// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/qmart/storefront/internal/pkg/sanitize"
	"github.com/sirupsen/logrus"
)

// AddressRepository persists addresses. Lookups are always scoped to the owning user;
// FindByID returns nil when the address does not exist or belongs to someone else.
type AddressRepository interface {
	Create(ctx context.Context, address *Address) error
	Update(ctx context.Context, address *Address) error
	Delete(ctx context.Context, userID, addressID uint) (bool, error)
	FindByID(ctx context.Context, userID, addressID uint) (*Address, error)
	ListByUser(ctx context.Context, userID uint) ([]Address, error)
}

// AddressService handles address business logic
type AddressService struct {
	repo     AddressRepository
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewAddressService creates a new address service
func NewAddressService(repo AddressRepository, logger *logrus.Logger) *AddressService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so clients can map errors to form inputs
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &AddressService{
		repo:     repo,
		validate: validate,
		logger:   logger,
	}
}

// Add saves a new address for the user
func (s *AddressService) Add(ctx context.Context, userID uint, input AddressInput) (*Address, error) {
	input, err := s.clean(input)
	if err != nil {
		return nil, err
	}

	address := &Address{UserID: userID}
	address.apply(input)

	if err := s.repo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"address_id": address.ID,
	}).Info("Address added")

	return address, nil
}

// Edit replaces the fields of an address owned by the user
func (s *AddressService) Edit(ctx context.Context, userID, addressID uint, input AddressInput) (*Address, error) {
	input, err := s.clean(input)
	if err != nil {
		return nil, err
	}

	address, err := s.Get(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	address.apply(input)

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	return address, nil
}

// Delete removes an address. Orders keep their own copy of the shipping address.
func (s *AddressService) Delete(ctx context.Context, userID, addressID uint) error {
	deleted, err := s.repo.Delete(ctx, userID, addressID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if !deleted {
		return addressNotFound(addressID)
	}
	return nil
}

// List returns all addresses of a user
func (s *AddressService) List(ctx context.Context, userID uint) ([]Address, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// Get retrieves a specific address for a user
func (s *AddressService) Get(ctx context.Context, userID, addressID uint) (*Address, error) {
	address, err := s.repo.FindByID(ctx, userID, addressID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve address: %w", err)
	}
	if address == nil {
		return nil, addressNotFound(addressID)
	}
	return address, nil
}

// clean sanitises free text and then validates the result
func (s *AddressService) clean(in AddressInput) (AddressInput, error) {
	in = AddressInput{
		FullName:    sanitize.Text(in.FullName),
		Phone:       strings.TrimSpace(in.Phone),
		AddressLine: sanitize.Text(in.AddressLine),
		City:        sanitize.Text(in.City),
		State:       sanitize.Text(in.State),
		Pincode:     strings.TrimSpace(in.Pincode),
	}

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return in, apperror.Validation(apperror.CodeInvalidInput, fe.Field(), describe(fe))
		}
		return in, apperror.Internal("unexpected validation error", err)
	}
	return in, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be %s digits", fe.Field(), fe.Param())
	case "number":
		return fmt.Sprintf("%s must contain digits only", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func addressNotFound(addressID uint) error {
	return apperror.NotFound(apperror.CodeAddressNotFound, fmt.Sprintf("address %d not found", addressID))
}
