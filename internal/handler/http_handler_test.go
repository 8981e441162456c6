package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlobby/room-directory/internal/domain"
	"github.com/openlobby/room-directory/internal/service"
	"github.com/openlobby/room-directory/pkg/jwt"
	"github.com/openlobby/room-directory/pkg/middleware"
	"github.com/openlobby/room-directory/pkg/response"
)

// stubDirectory records the arguments each operation received and
// returns canned results, so handler tests stay about binding, routing,
// and status mapping.
type stubDirectory struct {
	listQuery     *domain.ListRoomsQuery
	listPrincipal string
	listResult    *domain.ListResult
	listErr       error

	getRoomID string
	getResult *domain.RoomSummary
	getErr    error

	createPrincipal *domain.Principal
	createReq       *domain.CreateRoomRequest
	createResult    *domain.RoomSummary
	createErr       error
}

func (s *stubDirectory) ListRooms(_ context.Context, principalID string, q *domain.ListRoomsQuery) (*domain.ListResult, error) {
	s.listPrincipal = principalID
	s.listQuery = q
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.listResult != nil {
		return s.listResult, nil
	}
	return &domain.ListResult{Rooms: []domain.RoomSummary{}, Metadata: domain.NewListMetadata(q, 0, 0)}, nil
}

func (s *stubDirectory) GetRoom(_ context.Context, _ string, roomID string) (*domain.RoomSummary, error) {
	s.getRoomID = roomID
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getResult, nil
}

func (s *stubDirectory) CreateRoom(_ context.Context, principal *domain.Principal, req *domain.CreateRoomRequest) (*domain.RoomSummary, error) {
	s.createPrincipal = principal
	s.createReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResult, nil
}

var testJWT = jwt.NewManager("test-secret", "room-directory-test", time.Hour)

func setupRouter(t *testing.T, directory service.DirectoryService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewHandler(directory, middleware.NewAuthMiddleware(testJWT)).RegisterRoutes(r)
	return r
}

func bearerToken(t *testing.T, userID, email, username string) string {
	t.Helper()
	token, err := testJWT.Generate(userID, email, username)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(r *gin.Engine, method, target, token string, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListRoomsQueryBinding(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.ListRoomsQuery
	}{
		{
			name:  "absent page size defaults to ten",
			query: "",
			want:  domain.ListRoomsQuery{Page: 0, PageSize: 10},
		},
		{
			name:  "explicit zero page size binds as zero",
			query: "?pageSize=0",
			want:  domain.ListRoomsQuery{Page: 0, PageSize: 0},
		},
		{
			name:  "all parameters bound",
			query: "?page=3&pageSize=25&sortField=name&sortOrder=asc&search=poker",
			want:  domain.ListRoomsQuery{Page: 3, PageSize: 25, SortField: "name", SortOrder: "asc", Search: "poker"},
		},
		{
			name:  "negative page binds as-is",
			query: "?page=-5",
			want:  domain.ListRoomsQuery{Page: -5, PageSize: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubDirectory{}
			r := setupRouter(t, stub)

			w := doRequest(r, http.MethodGet, "/api/v1/rooms"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.NotNil(t, stub.listQuery)
			assert.Equal(t, tt.want, *stub.listQuery)
		})
	}
}

func TestListRoomsRejectsMalformedQuery(t *testing.T) {
	stub := &stubDirectory{}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodGet, "/api/v1/rooms?page=banana", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, stub.listQuery)
}

func TestListRoomsEnvelope(t *testing.T) {
	stub := &stubDirectory{
		listResult: &domain.ListResult{
			Rooms: []domain.RoomSummary{{ID: "r1", Name: "Poker Night"}},
			Metadata: domain.ListMetadata{
				Total: 1, Page: 0, PageSize: 10, TotalPages: 1, CurrentCount: 1,
				Sort: domain.SortDescriptor{Field: domain.SortByCreatedAt, Order: domain.SortDesc},
			},
		},
	}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodGet, "/api/v1/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success  bool                 `json:"success"`
		Data     []domain.RoomSummary `json:"data"`
		Metadata domain.ListMetadata  `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "r1", body.Data[0].ID)
	assert.Equal(t, 1, body.Metadata.Total)
	assert.Equal(t, domain.SortByCreatedAt, body.Metadata.Sort.Field)
}

func TestListRoomsPassesPrincipal(t *testing.T) {
	stub := &stubDirectory{}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodGet, "/api/v1/rooms", bearerToken(t, "alice", "alice@example.com", "Alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", stub.listPrincipal)

	// Anonymous requests are served too; the principal is just empty.
	w = doRequest(r, http.MethodGet, "/api/v1/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", stub.listPrincipal)
}

func TestGetRoomNotFoundMapsTo404(t *testing.T) {
	stub := &stubDirectory{getErr: service.ErrRoomNotFound}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodGet, "/api/v1/rooms/missing-id", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing-id", stub.getRoomID)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestGetRoomSuccess(t *testing.T) {
	stub := &stubDirectory{getResult: &domain.RoomSummary{ID: "r1", Name: "Poker Night"}}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodGet, "/api/v1/rooms/r1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool               `json:"success"`
		Data    domain.RoomSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "r1", body.Data.ID)
}

func TestCreateRoomRequiresToken(t *testing.T) {
	stub := &stubDirectory{}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodPost, "/api/v1/rooms", "", []byte(`{"name":"x"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, stub.createReq)

	w = doRequest(r, http.MethodPost, "/api/v1/rooms", "Bearer not-a-token", []byte(`{"name":"x"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, stub.createReq)
}

func TestCreateRoomSuccess(t *testing.T) {
	stub := &stubDirectory{
		createResult: &domain.RoomSummary{ID: "r9", Name: "Poker Night", IsCreator: true},
	}
	r := setupRouter(t, stub)

	body := []byte(`{"name":"Poker Night","password":"hunter2"}`)
	w := doRequest(r, http.MethodPost, "/api/v1/rooms", bearerToken(t, "alice", "alice@example.com", "Alice"), body)
	require.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, stub.createPrincipal)
	assert.Equal(t, "alice", stub.createPrincipal.ID)
	assert.Equal(t, "Alice", stub.createPrincipal.Name)
	require.NotNil(t, stub.createReq)
	assert.Equal(t, "Poker Night", stub.createReq.Name)
	assert.Equal(t, "hunter2", stub.createReq.Password)

	var out struct {
		Success bool               `json:"success"`
		Data    domain.RoomSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "r9", out.Data.ID)
	assert.True(t, out.Data.IsCreator)
}

func TestCreateRoomNameRequiredMapsTo400(t *testing.T) {
	stub := &stubDirectory{createErr: service.ErrNameRequired}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodPost, "/api/v1/rooms",
		bearerToken(t, "alice", "alice@example.com", "Alice"), []byte(`{"name":"   "}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
}

func TestCreateRoomMalformedBody(t *testing.T) {
	stub := &stubDirectory{}
	r := setupRouter(t, stub)

	w := doRequest(r, http.MethodPost, "/api/v1/rooms",
		bearerToken(t, "alice", "alice@example.com", "Alice"), []byte(`{"name":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, stub.createReq)
}
