package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"pharmapos/internal/apierror"
	"pharmapos/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their JSON (or query) names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apierror.Validation(map[string]string{"body": "invalid JSON: " + err.Error()}))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, apierror.Validation(map[string]string{"query": err.Error()}))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(c, apierror.Internal(err))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = describe(fe)
	}
	respondError(c, apierror.Validation(fields))
	return false
}

// fieldPath drops the struct name prefix: "CreateSaleRequest.items[0].price" → "items[0].price".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// pathID parses a :param as a uuid, writing a 400 on failure.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apierror.Validation(map[string]string{name: "must be a valid id"}))
		return uuid.Nil, false
	}
	return id, true
}

// respondError records err for the ErrorHandler log line and writes the safe envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := apierror.Render(err)
	c.AbortWithStatusJSON(status, body)
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dto.Envelope{Success: true, Message: message, Data: data})
}

// ok is a 200 with the given data.
func ok(c *gin.Context, data any) {
	respond(c, http.StatusOK, "", data)
}
