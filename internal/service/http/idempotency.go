package httpsvc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// HeaderIdempotencyKey — заголовок с ключом идемпотентности запроса.
const HeaderIdempotencyKey = "Idempotency-Key"

const defaultIdempotencyTTL = 24 * time.Hour

// responseRecorder буферизует тело ответа, чтобы сохранить его в
// idempotency-хранилище после обработки.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}

// IdempotencyMiddleware реализует повтор ответа по Idempotency-Key.
// Запросы без заголовка проходят насквозь. Повтор с тем же ключом и телом
// возвращает сохранённый ответ; тот же ключ с другим телом — 409.
func IdempotencyMiddleware(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.WithField("component", "idempotency-middleware")
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || repo == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashRequest(c.Request.Method, c.FullPath(), body)

		record, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(defaultIdempotencyTTL))
		switch {
		case err == nil:
			// Первый запрос с этим ключом, обрабатываем.
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "idempotency key was used with a different request"})
			return
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			replayStoredResponse(c, record)
			return
		default:
			logger.WithError(err).WithField("idempotency_key", key).Warn("idempotency lookup failed")
			c.Next()
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := recorder.Status()
		responseBody := recorder.body.Bytes()

		if status >= http.StatusInternalServerError {
			if err := repo.MarkFailed(key, responseBody, status); err != nil {
				logger.WithError(err).WithField("idempotency_key", key).Warn("failed to mark idempotency record failed")
			}
			return
		}
		if err := repo.MarkDone(key, responseBody, status); err != nil {
			logger.WithError(err).WithField("idempotency_key", key).Warn("failed to mark idempotency record done")
		}
	}
}

func replayStoredResponse(c *gin.Context, record domain.IdempotencyRecord) {
	if record.Status == domain.IdempotencyStatusProcessing {
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "request with this idempotency key is being processed"})
		return
	}

	c.Abort()
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(record.HTTPStatus)
	_, _ = c.Writer.Write(record.ResponseBody)
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
