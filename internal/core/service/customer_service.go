package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

// CustomerInput holds the fields a caller sent. On create Name, Surname and
// Email are required; on update nil fields are left untouched.
type CustomerInput struct {
	Name    *string
	Surname *string
	Email   *string
	Address *string
	City    *string
	State   *string
	ZipCode *string
	Country *string
	Phone   *string
}

type CustomerService struct {
	store  port.Store
	logger zerolog.Logger
}

func NewCustomerService(store port.Store, logger zerolog.Logger) *CustomerService {
	return &CustomerService{
		store:  store,
		logger: logger.With().Str("component", "customer_service").Logger(),
	}
}

func (s *CustomerService) CreateCustomer(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	required := []struct {
		field string
		value *string
	}{{"name", in.Name}, {"surname", in.Surname}, {"email", in.Email}}
	for _, r := range required {
		if r.value == nil || strings.TrimSpace(*r.value) == "" {
			return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, r.field)
		}
	}

	c := &domain.Customer{}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("customer_id", c.ID).Msg("customer created")
	return c, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: customer %d", domain.ErrNotFound, id)
	}
	return c, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.store.ListCustomers(ctx)
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) (*domain.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidArgument)
	}
	if in.Surname != nil && strings.TrimSpace(*in.Surname) == "" {
		return nil, fmt.Errorf("%w: surname must not be empty", domain.ErrInvalidArgument)
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCustomer refuses to remove a customer that still has orders.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int64) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountOrdersByCustomer(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: customer %d has %d orders", domain.ErrConflict, id, n)
	}
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("customer_id", id).Msg("customer deleted")
	return nil
}

func (s *CustomerService) apply(ctx context.Context, c *domain.Customer, in CustomerInput) error {
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: invalid email %q", domain.ErrInvalidArgument, email)
		}
		if !strings.EqualFold(email, c.Email) {
			existing, err := s.store.GetCustomerByEmail(ctx, email)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != c.ID {
				return fmt.Errorf("%w: email %s already in use", domain.ErrConflict, email)
			}
		}
		c.Email = email
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Name, in.Name)
	set(&c.Surname, in.Surname)
	set(&c.Address, in.Address)
	set(&c.City, in.City)
	set(&c.State, in.State)
	set(&c.ZipCode, in.ZipCode)
	set(&c.Country, in.Country)
	set(&c.Phone, in.Phone)
	return nil
}
