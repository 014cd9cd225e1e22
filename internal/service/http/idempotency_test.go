package httpsvc_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpsvc "github.com/vladislavdragonenkov/sales/internal/service/http"
)

func TestCreateSale_IdempotentReplay(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{httpsvc.HeaderIdempotencyKey: "key-1"}

	first := doRequest(router, http.MethodPost, "/sales", createSaleBody(), headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := doRequest(router, http.MethodPost, "/sales", createSaleBody(), headers)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	// Повтор возвращает сохранённый ответ: тот же sale_id, без новой продажи.
	assert.Equal(t, first.Body.String(), second.Body.String())

	var firstResp, secondResp httpsvc.OperationResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	assert.Equal(t, firstResp.SaleID, secondResp.SaleID)
}

func TestCreateSale_IdempotencyKeyReusedWithDifferentBody(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{httpsvc.HeaderIdempotencyKey: "key-2"}

	first := doRequest(router, http.MethodPost, "/sales", createSaleBody(), headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	otherBody := []byte(`{
		"sale_number": "SALE-XYZ",
		"sale_date": "2026-08-01T10:00:00Z",
		"customer": "Globex",
		"branch": "East Branch",
		"items": [{"product": "Wine Box", "quantity": 2, "unit_price": "15"}]
	}`)

	second := doRequest(router, http.MethodPost, "/sales", otherBody, headers)
	assert.Equal(t, http.StatusConflict, second.Code, second.Body.String())
}

func TestCreateSale_WithoutIdempotencyKey(t *testing.T) {
	router, _ := newTestRouter(t)

	first := doRequest(router, http.MethodPost, "/sales", createSaleBody(), nil)
	second := doRequest(router, http.MethodPost, "/sales", createSaleBody(), nil)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)

	// Без ключа каждый запрос создаёт отдельную продажу.
	var firstResp, secondResp httpsvc.OperationResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	assert.NotEqual(t, firstResp.SaleID, secondResp.SaleID)
}

func TestCreateSale_FailedValidationIsReplayed(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{httpsvc.HeaderIdempotencyKey: "key-3"}

	badBody := []byte(`{
		"sale_number": "",
		"sale_date": "2026-08-01T10:00:00Z",
		"customer": "ACME Corp",
		"branch": "Main Branch",
		"items": [{"product": "Beer Crate", "quantity": 5, "unit_price": "20"}]
	}`)

	first := doRequest(router, http.MethodPost, "/sales", badBody, headers)
	require.Equal(t, http.StatusBadRequest, first.Code)

	second := doRequest(router, http.MethodPost, "/sales", badBody, headers)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
