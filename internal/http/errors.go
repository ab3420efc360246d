package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var tagNamesOnce sync.Once

// registerJSONTagNames hace que los errores del validator usen el nombre JSON del campo.
func registerJSONTagNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// respondBindError traduce errores de ShouldBindJSON a 400 {message, field}.
func respondBindError(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		syntax  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs) && len(verrs) > 0:
		fe := verrs[0]
		respondValidation(c, validationMessage(fe), fe.Field())
	case errors.As(err, &typeErr):
		respondValidation(c, fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type.String()), typeErr.Field)
	case errors.As(err, &syntax), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		respondValidation(c, "request body must be valid JSON", "")
	default:
		respondValidation(c, err.Error(), "")
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func respondValidation(c *gin.Context, message, field string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": message, "field": field})
}

func respondNotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": message})
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}

// respondInternal registra el error real y responde un 500 generico.
func respondInternal(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}

// pathID lee un parametro numerico de la ruta; responde 400 si no lo es.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondValidation(c, name+" must be a positive integer", name)
		return 0, false
	}
	return id, true
}

// lookupID es pathID para GETs de un recurso: un id ilegible no existe, responde 404.
func lookupID(c *gin.Context, name, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondNotFound(c, notFound)
		return 0, false
	}
	return id, true
}
