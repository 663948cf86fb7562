package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/paystack"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseBody decodes and validates a JSON body. Only the first failing
// field is reported.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return check(out)
}

func parseQuery(c *fiber.Ctx, out interface{}) error {
	if err := c.QueryParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}
	return nil
}

func check(out interface{}) error {
	err := validate.Struct(out)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, fieldMessage(fieldErrs[0]))
	}
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without", "required_unless":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min", "max":
		bound := map[string]string{"min": "at least", "max": "at most"}[fe.Tag()]
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters", field, bound, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("%s must have %s %s entries", field, bound, fe.Param())
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gt": "greater than", "gte": "at least"}[fe.Tag()], fe.Param())
	case "latitude", "longitude":
		return field + " must be a valid " + fe.Tag()
	case "url":
		return field + " must be a valid URL"
	case "http_url":
		return field + " must be an http or https link"
	}
	return field + " is invalid"
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := authctx.GetUserID(c)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	return id, nil
}

// actingAdmin is nil when the request was admitted by X-Admin-Token alone.
func actingAdmin(c *fiber.Ctx) *uuid.UUID {
	id, err := authctx.GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(dto.OK(data))
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(dto.OK(data))
}

func paged(c *fiber.Ctx, key string, items interface{}, p dto.Pagination) error {
	return c.JSON(dto.OK(fiber.Map{key: items, "pagination": p}))
}

var errorStatus = []struct {
	status int
	errs   []error
}{
	{fiber.StatusNotFound, []error{
		services.ErrUserNotFound, services.ErrProductNotFound, services.ErrOrderNotFound,
		services.ErrPaymentNotFound, services.ErrReviewNotFound, services.ErrReportNotFound,
		services.ErrReportTarget, services.ErrNotificationNotFound, services.ErrMessageNotFound,
		services.ErrSettingNotFound, services.ErrAPIKeyNotFound, services.ErrTransporterNotFound,
		services.ErrDeliveryNotFound,
	}},
	{fiber.StatusUnauthorized, []error{
		services.ErrInvalidCredentials, services.ErrInvalidToken, services.ErrInvalidGoogleToken,
		services.ErrInvalidSignature,
	}},
	{fiber.StatusForbidden, []error{
		services.ErrForbidden, services.ErrAccountDisabled, services.ErrSelfAction, services.ErrBlocked,
	}},
	{fiber.StatusConflict, []error{
		services.ErrEmailTaken, services.ErrGoogleAccountLinked, services.ErrAlreadyBlocked,
		services.ErrAlreadyPaid, services.ErrAlreadyReviewed, services.ErrTransporterExists,
		services.ErrPlateTaken, services.ErrDeliveryExists, services.ErrOrderStateChanged,
		services.ErrDeliveryInProgress, services.ErrInsufficientStock,
	}},
	{fiber.StatusBadRequest, []error{
		services.ErrContentRejected, services.ErrProductUnavailable, services.ErrMixedSellers,
		services.ErrOwnProduct, services.ErrInvalidTransition, services.ErrOrderDelivered,
		services.ErrOrderAlreadyCancelled, services.ErrOrderNotCancellable, services.ErrOrderPaid,
		services.ErrOrderNotPayable, services.ErrAmountMismatch, services.ErrInvalidPrice,
		services.ErrInvalidFilter, services.ErrSelfReview, services.ErrInvalidRating,
		services.ErrNotOrderParty, services.ErrSelfMessage, services.ErrEmptyMessage,
		services.ErrInvalidMessage, services.ErrSelfBlock, services.ErrTransporterUnverified,
		services.ErrOrderNotConfirmed, services.ErrMissingCoordinates, services.ErrInvalidDeliveryStatus,
		services.ErrMalformedEvent,
	}},
	{fiber.StatusServiceUnavailable, []error{
		services.ErrGoogleNotConfigured, services.ErrPaymentNotConfigured,
	}},
	{fiber.StatusBadGateway, []error{paystack.ErrGatewayUnavailable}},
}

func statusOf(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	var apiErr *paystack.APIError
	if errors.As(err, &apiErr) {
		return fiber.StatusBadRequest, apiErr.Message
	}
	for _, group := range errorStatus {
		for _, target := range group.errs {
			if !errors.Is(err, target) {
				continue
			}
			if group.status == fiber.StatusBadGateway {
				return group.status, target.Error()
			}
			return group.status, err.Error()
		}
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

// fail renders err as the error envelope. Unknown errors are logged and
// answered with a generic 500.
func fail(c *fiber.Ctx, err error) error {
	status, msg := statusOf(err)
	if status >= fiber.StatusInternalServerError && status != fiber.StatusBadGateway && status != fiber.StatusServiceUnavailable {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err,
		)
	}
	return c.Status(status).JSON(dto.Fail(msg))
}
