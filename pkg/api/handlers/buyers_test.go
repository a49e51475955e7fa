package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupBuyerHandler(t *testing.T) (*BuyerHandler, *gorm.DB) {
	db := setupHandlerTestDB(t)
	log := logger.Default()
	svc := buyers.NewService(db, nil, audit.NewService(db, log), log)
	return NewBuyerHandler(svc, nil), db
}

func buyerRequest(t *testing.T, h echo.HandlerFunc, method, path, body, userID string, params map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("user_role", models.RoleUser)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

const validBuyerJSON = `{
	"fullName": "Rahul Sharma",
	"phone": "9876543210",
	"city": "Chandigarh",
	"propertyType": "Apartment",
	"bhk": "3",
	"purpose": "Buy",
	"timeline": "0-3m",
	"source": "Website"
}`

func TestBuyerCreate(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	rec := buyerRequest(t, h.Create, http.MethodPost, "/api/v1/buyers", validBuyerJSON, "owner-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var buyer models.Buyer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyer))
	assert.Equal(t, "owner-1", buyer.OwnerID)
	assert.Equal(t, "New", buyer.Status)
}

func TestBuyerCreate_ValidationErrorsCarryFieldMap(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	body := `{"fullName":"X","phone":"12","city":"Chandigarh","propertyType":"Apartment","purpose":"Buy","timeline":"0-3m","source":"Website"}`
	rec := buyerRequest(t, h.Create, http.MethodPost, "/api/v1/buyers", body, "owner-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.Contains(t, resp.Fields, "fullName")
	assert.Contains(t, resp.Fields, "phone")
	assert.Contains(t, resp.Fields, "bhk")
}

func TestBuyerUpdate_ConflictMapsTo409(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	rec := buyerRequest(t, h.Create, http.MethodPost, "/api/v1/buyers", validBuyerJSON, "owner-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var buyer models.Buyer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyer))

	stale := buyer.UpdatedAt.Add(-time.Second).Format(time.RFC3339Nano)
	body := strings.TrimSuffix(validBuyerJSON, "}") + `,"updatedAt":"` + stale + `"}`
	rec = buyerRequest(t, h.Update, http.MethodPut, "/api/v1/buyers/"+buyer.ID, body, "owner-1",
		map[string]string{"id": buyer.ID})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ConflictMessage, resp.Message)
}

func TestBuyerUpdate_RequiresUpdatedAt(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	rec := buyerRequest(t, h.Update, http.MethodPut, "/api/v1/buyers/some-id", validBuyerJSON, "owner-1",
		map[string]string{"id": "some-id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuyerGet_NotFoundAndForeign(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	rec := buyerRequest(t, h.Get, http.MethodGet, "/api/v1/buyers/missing", "", "owner-1",
		map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = buyerRequest(t, h.Create, http.MethodPost, "/api/v1/buyers", validBuyerJSON, "owner-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var buyer models.Buyer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyer))

	rec = buyerRequest(t, h.Get, http.MethodGet, "/api/v1/buyers/"+buyer.ID, "", "someone-else",
		map[string]string{"id": buyer.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign buyers are indistinguishable from missing ones")
}

func TestBuyerSearch(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	rec := buyerRequest(t, h.Create, http.MethodPost, "/api/v1/buyers", validBuyerJSON, "owner-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = buyerRequest(t, h.Search, http.MethodGet, "/api/v1/buyers?city=Chandigarh", "", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.BuyerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Pagination.TotalCount)

	rec = buyerRequest(t, h.Search, http.MethodGet, "/api/v1/buyers?city=Mohali", "", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Pagination.TotalCount)
}

func TestBuyerSearch_RejectsInvalidParams(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	for _, query := range []string{
		"page=-1",
		"limit=-5",
		"limit=500",
		"city=Bogota",
		"sortBy=phone",
		"sortOrder=sideways",
	} {
		rec := buyerRequest(t, h.Search, http.MethodGet, "/api/v1/buyers?"+query, "", "owner-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	// Omitted values mean "use the defaults", and the upper bound is
	// inclusive.
	rec := buyerRequest(t, h.Search, http.MethodGet, "/api/v1/buyers?city=Mohali", "", "owner-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = buyerRequest(t, h.Search, http.MethodGet, "/api/v1/buyers?page=1&limit=100", "", "owner-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuyerDeleteAndHistory(t *testing.T) {
	h, _ := setupBuyerHandler(t)

	rec := buyerRequest(t, h.Create, http.MethodPost, "/api/v1/buyers", validBuyerJSON, "owner-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var buyer models.Buyer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyer))

	rec = buyerRequest(t, h.History, http.MethodGet, "/api/v1/buyers/"+buyer.ID+"/history", "", "owner-1",
		map[string]string{"id": buyer.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.BuyerHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	rec = buyerRequest(t, h.Delete, http.MethodDelete, "/api/v1/buyers/"+buyer.ID, "", "owner-1",
		map[string]string{"id": buyer.ID})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = buyerRequest(t, h.Get, http.MethodGet, "/api/v1/buyers/"+buyer.ID, "", "owner-1",
		map[string]string{"id": buyer.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
