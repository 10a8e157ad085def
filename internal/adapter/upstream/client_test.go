package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/platform/requestid"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   []byte
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-token", 2*time.Second), server
}

func TestCreate_PostsToKindPath(t *testing.T) {
	var recorded recordedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		recorded = recordedRequest{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		var payload domain.CreateSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(domain.Submission{ID: "s1", Description: payload.Description, Status: domain.StatusPending})
	})

	sub, err := client.Create(context.Background(), domain.KindRequest, domain.CreateSubmission{
		CategoryRef: "roads",
		Description: "pothole",
		Contact:     domain.Contact{FirstName: "Aziz", LastName: "Karimov", Phone: "998901234567"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, recorded.method)
	assert.Equal(t, "/api/requests", recorded.path)
	assert.Equal(t, "Bearer test-token", recorded.auth)
	assert.Equal(t, domain.KindRequest, sub.Kind, "Kind is stamped client-side")
	assert.Equal(t, "pothole", sub.Description)
}

func TestBasePath_PerKind(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want string
	}{
		{domain.KindRequest, "/api/requests"},
		{domain.KindServiceReport, "/api/service-reports"},
		{domain.KindMskOrder, "/api/msk/orders"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := basePath(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := basePath(domain.Kind("bogus"))
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeValidation, structured.Type)
}

func TestListMine_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]domain.Submission{{ID: "s1", Status: domain.StatusPending}})
	})

	list, err := client.ListMine(context.Background(), domain.KindServiceReport)

	require.NoError(t, err)
	assert.EqualValues(t, 3, attempts.Load())
	require.Len(t, list, 1)
	assert.Equal(t, domain.KindServiceReport, list[0].Kind)
}

func TestListMine_ClientRejectionDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "session expired"})
	})

	_, err := client.ListMine(context.Background(), domain.KindRequest)

	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeRemote, structured.Type)
	assert.Equal(t, "session expired", structured.Message)
	assert.Equal(t, http.StatusForbidden, structured.Context["status"])
	assert.EqualValues(t, 1, attempts.Load())
}

func TestCancel_SendsReason(t *testing.T) {
	var recorded recordedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)
		recorded = recordedRequest{method: r.Method, path: r.URL.Path}
		assert.Equal(t, "moved away", body["cancelReason"])
		json.NewEncoder(w).Encode(domain.Submission{ID: "s1", Status: domain.StatusCancelled, CancelReason: body["cancelReason"]})
	})

	sub, err := client.Cancel(context.Background(), domain.KindRequest, "s1", "moved away")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, recorded.method)
	assert.Equal(t, "/api/requests/s1/cancel", recorded.path)
	assert.Equal(t, domain.StatusCancelled, sub.Status)
}

func TestConfirm_SendsDecision(t *testing.T) {
	var recorded recordedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := map[string]bool{}
		json.NewDecoder(r.Body).Decode(&body)
		recorded = recordedRequest{method: r.Method, path: r.URL.Path}
		assert.False(t, body["confirmed"])
		json.NewEncoder(w).Encode(domain.Submission{ID: "o1", Status: domain.StatusInReview})
	})

	_, err := client.Confirm(context.Background(), domain.KindMskOrder, "o1", false)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, recorded.method)
	assert.Equal(t, "/api/msk/orders/o1/confirm", recorded.path)
}

func TestListGeoNodes_BuildsQuery(t *testing.T) {
	var recorded recordedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		recorded = recordedRequest{path: r.URL.Path, query: r.URL.RawQuery}
		json.NewEncoder(w).Encode([]domain.GeoNode{{ID: "d1", Name: "Chilonzor", Type: domain.GeoDistrict, ParentID: "r1"}})
	})

	nodes, err := client.ListGeoNodes(context.Background(), domain.GeoDistrict, "r1")

	require.NoError(t, err)
	assert.Equal(t, "/api/regions", recorded.path)
	assert.Equal(t, "parent=r1&type=district", recorded.query)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Chilonzor", nodes[0].Name)
}

func TestListGeoNodes_RootLevelOmitsParent(t *testing.T) {
	var recorded recordedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		recorded = recordedRequest{query: r.URL.RawQuery}
		json.NewEncoder(w).Encode([]domain.GeoNode{})
	})

	_, err := client.ListGeoNodes(context.Background(), domain.GeoRegion, "")

	require.NoError(t, err)
	assert.Equal(t, "type=region", recorded.query)
}

func TestSaveAddress_PutsToRegionEndpoint(t *testing.T) {
	var recorded recordedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var addr domain.Address
		require.NoError(t, json.NewDecoder(r.Body).Decode(&addr))
		recorded = recordedRequest{method: r.Method, path: r.URL.Path}
		assert.Equal(t, "r1", addr.Region)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.SaveAddress(context.Background(), domain.Address{
		Region:      "r1",
		District:    "d1",
		HouseType:   domain.HousePrivate,
		HouseNumber: "12",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, recorded.method)
	assert.Equal(t, "/api/users/region", recorded.path)
}

func TestGetProfile_DecodesAccount(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/me", r.URL.Path)
		json.NewEncoder(w).Encode(domain.Profile{
			FirstName: "Aziz",
			LastName:  "Karimov",
			Phone:     "998901234567",
			Address:   &domain.Address{Region: "r1", District: "d1"},
		})
	})

	profile, err := client.GetProfile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Aziz", profile.FirstName)
	assert.True(t, profile.Address.HasRegion())
}

func TestDo_ForwardsContextRequestID(t *testing.T) {
	var header string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode(domain.Profile{})
	})

	ctx := requestid.With(context.Background(), "req-join-me")
	_, err := client.GetProfile(ctx)

	require.NoError(t, err)
	assert.Equal(t, "req-join-me", header)
}

func TestDo_ErrorBodyWithoutMessageFallsBack(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("not json"))
	})

	_, err := client.Update(context.Background(), domain.KindRequest, "s1", domain.SubmissionPatch{Description: "x"})

	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeRemote, structured.Type)
	assert.Equal(t, "the service could not process the request", structured.Message)
}
