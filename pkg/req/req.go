package req

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Dhoini/offline-cashier/pkg/logger"
	"github.com/Dhoini/offline-cashier/pkg/res"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode декодирует JSON из io.ReadCloser в структуру типа T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}

// HandleBody декодирует и валидирует тело запроса. При ошибке отвечает 422
// и прерывает обработку, второй результат false.
func HandleBody[T any](c *gin.Context, log *logger.Logger) (*T, bool) {
	body, err := Decode[T](c.Request.Body)
	if err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity, log)
		c.Abort()
		return nil, false
	}

	if err := IsValid(body); err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity, log)
		c.Abort()
		return nil, false
	}

	return &body, true
}
