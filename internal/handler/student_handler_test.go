package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/internal/service"
)

func newStudentHandlerFixture(t *testing.T) (*StudentHandler, *repository.Collections) {
	t.Helper()
	cache := repository.NewMemoryStore()
	gw := repository.NewGateway(nil, cache, repository.GatewayConfig{}, nil, nil)
	collections := repository.NewCollections(gw, nil, cache, "handler:")
	students := service.NewStudentService(collections.Students, collections.Parents, nil, nil)
	parents := service.NewParentService(collections.Parents, collections.Students, nil, nil)
	return NewStudentHandler(students, parents), collections
}

func TestStudentHandlerUpsertUsesPathID(t *testing.T) {
	h, collections := newStudentHandlerFixture(t)
	c, rec := newTestContext(http.MethodPut, "/students/S1",
		`{"id":"ignored","email":"Asha@Campus.edu","name":"Asha","department":"cse"}`, nil)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}

	h.Upsert(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, "S1", envelope.Data["id"])
	assert.Equal(t, "CSE", envelope.Data["department"])
	assert.Equal(t, "asha@campus.edu", envelope.Data["email"])

	stored, err := collections.Students.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "S1", stored[0].ID)
}

func TestStudentHandlerUpsertRejectsInvalidPayload(t *testing.T) {
	h, _ := newStudentHandlerFixture(t)
	c, rec := newTestContext(http.MethodPut, "/students/S1", `{"email":"not-an-email","name":"Asha","department":"CSE"}`, nil)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}

	h.Upsert(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerGetMissing(t *testing.T) {
	h, _ := newStudentHandlerFixture(t)
	c, rec := newTestContext(http.MethodGet, "/students/S9", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "S9"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerRecordAttendance(t *testing.T) {
	h, collections := newStudentHandlerFixture(t)
	require.NoError(t, collections.Students.UpsertOne(context.Background(), models.Student{ID: "S1", Email: "s1@campus.edu", Name: "Asha", Department: "CSE"}))

	c, rec := newTestContext(http.MethodPost, "/students/S1/attendance", `{"date":"2024-03-01","subjectCode":"CS101","present":true}`, nil)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}
	h.RecordAttendance(c)
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/students/S1/attendance", `{"date":"2024-03-02","subjectCode":"CS101","present":false}`, nil)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}
	h.RecordAttendance(c)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.EqualValues(t, 50, decode(t, rec).Data["attendancePercentage"])
}

func TestStudentHandlerParentNotLinked(t *testing.T) {
	h, collections := newStudentHandlerFixture(t)
	require.NoError(t, collections.Students.UpsertOne(context.Background(), models.Student{ID: "S1", Email: "s1@campus.edu", Name: "Asha", Department: "CSE"}))

	c, rec := newTestContext(http.MethodGet, "/students/S1/parent", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}
	h.Parent(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
