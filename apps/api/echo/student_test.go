package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func studentCount(t *testing.T, app *testApp, classID string) int {
	t.Helper()
	c, err := app.classRepo.GetClass(context.Background(), classID)
	require.NoError(t, err)
	return c.StudentCount
}

func Test_studentApi(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin@x.com", "secret1", user.RoleAdmin, "", "")
	teacher := testutil.CreateUser(t, app.usrRepo, "T1", "t1@x.com", "secret1", user.RoleTeacher, "Math", "")
	c1 := testutil.CreateClass(t, app.classRepo, "1A", teacher.ID)
	c2 := testutil.CreateClass(t, app.classRepo, "1B", teacher.ID)

	adminToken := getToken(t, app, admin)
	register := func(name, email, classID string) user.User {
		rec := app.do(http.MethodPost, "/api/v1/auth/register", "",
			[]byte(`{"name":"`+name+`","email":"`+email+`","password":"secret1","role":"student","classId":"`+classID+`"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		usr, err := app.usrRepo.GetUserByEmail(context.Background(), email)
		require.NoError(t, err)
		return usr
	}

	s1 := register("S1", "s1@x.com", c1.ID)
	s2 := register("S2", "s2@x.com", c1.ID)
	s3 := register("S3", "s3@x.com", "")
	assert.Equal(t, 2, studentCount(t, app, c1.ID))

	ref1 := &class.Ref{ID: c1.ID, Name: "1A"}
	ref2 := &class.Ref{ID: c2.ID, Name: "1B"}
	s1Token := getToken(t, app, s1)

	runHTTPTests(t, app, []httpTest{
		{
			name: "list as teacher", path: "/api/v1/students", token: getToken(t, app, teacher),
			wantCode: http.StatusForbidden, wantData: errBody(t, "Role teacher is not authorized to access this route"),
		},
		{
			name: "list", path: "/api/v1/students", token: s1Token,
			wantData: marshallObj(t, listResponse{
				Success: true, Count: 3, Total: 3, Page: 1, Pages: 1,
				Data: []studentListItem{
					{ID: s1.ID, Name: "S1", Class: ref1},
					{ID: s2.ID, Name: "S2", Class: ref1},
					{ID: s3.ID, Name: "S3"},
				},
			}),
		},
		{
			name: "list by class", path: "/api/v1/students?classId=" + c1.ID + "&limit=1&page=2", token: adminToken,
			wantData: marshallObj(t, listResponse{
				Success: true, Count: 1, Total: 2, Page: 2, Pages: 2,
				Data: []studentListItem{{ID: s2.ID, Name: "S2", Class: ref1}},
			}),
		},
		{
			name: "list an empty class", path: "/api/v1/students?classId=" + c2.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: errBody(t, "No students found"),
		},
		{
			name: "list by malformed class", path: "/api/v1/students?classId=lol", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: errBody(t, "classId must be a valid identifier"),
		},
		{
			name: "get", path: "/api/v1/students/" + s1.ID, token: adminToken,
			wantData: dataBody(t, studentDetail{ID: s1.ID, Name: "S1", Email: "s1@x.com", Photo: user.DefaultPhoto, Class: ref1}),
		},
		{
			name: "get a teacher", path: "/api/v1/students/" + teacher.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: errBody(t, "Student with ID "+teacher.ID+" not found"),
		},
		{
			name: "update someone else", method: http.MethodPut, path: "/api/v1/students/" + s2.ID, token: s1Token,
			body:     []byte(`{"name":"Hacked"}`),
			wantCode: http.StatusForbidden, wantData: errBody(t, "Unauthorized to update this student"),
		},
		{
			name: "move to another class", method: http.MethodPut, path: "/api/v1/students/" + s1.ID, token: s1Token,
			body:     []byte(`{"classId":"` + c2.ID + `"}`),
			wantData: dataBody(t, studentDetail{ID: s1.ID, Name: "S1", Email: "s1@x.com", Photo: user.DefaultPhoto, Class: ref2}),
		},
		{
			name: "move to an unknown class", method: http.MethodPut, path: "/api/v1/students/" + s1.ID, token: s1Token,
			body:     []byte(`{"classId":"5f8d0d55b54764421b7156c9"}`),
			wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid or non-existent class ID"),
		},
		{
			name: "update with a subject", method: http.MethodPut, path: "/api/v1/students/" + s1.ID, token: adminToken,
			body:     []byte(`{"subject":"Math"}`),
			wantCode: http.StatusBadRequest, wantData: errBody(t, "subject is only allowed for teachers"),
		},
	})
	assert.Equal(t, 1, studentCount(t, app, c1.ID))
	assert.Equal(t, 1, studentCount(t, app, c2.ID))

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/v1/students/"+s2.ID, s1Token)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(http.MethodDelete, "/api/v1/students/"+s2.ID, adminToken)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, messageResponse{Success: true, Message: "Student deleted"}),
		}, rec)
		assert.Equal(t, 0, studentCount(t, app, c1.ID))

		rec = app.do(http.MethodGet, "/api/v1/students/"+s2.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("class deleted", func(t *testing.T) {
		require.NoError(t, app.classRepo.DeleteClass(context.Background(), c2.ID))
		rec := app.do(http.MethodGet, "/api/v1/students/"+s1.ID, s1Token)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: dataBody(t, studentDetail{ID: s1.ID, Name: "S1", Email: "s1@x.com", Photo: user.DefaultPhoto}),
		}, rec)
	})
}
