package echoapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

// newUploadRequest builds a multipart request with a single "file" part.
func newUploadRequest(t *testing.T, path, token, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("name", "no file"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func Test_photoUpload(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin@x.com", "secret1", user.RoleAdmin, "", "")
	t1 := testutil.CreateUser(t, app.usrRepo, "T1", "t1@x.com", "secret1", user.RoleTeacher, "Math", "")
	t2 := testutil.CreateUser(t, app.usrRepo, "T2", "t2@x.com", "secret1", user.RoleTeacher, "Art", "")
	s1 := testutil.CreateUser(t, app.usrRepo, "S1", "s1@x.com", "secret1", user.RoleStudent, "", "")

	teacherPath := "/api/v1/teachers/" + t1.ID + "/photo"
	t1Token := getToken(t, app, t1)
	img := []byte("\x89PNG not really")

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec
	}

	t.Run("success", func(t *testing.T) {
		url := "https://res.cloudinary.com/shule/image/upload/photos/photo_" + t1.ID + ".png"
		app.photos.On("UploadPhoto", mock.Anything, mock.MatchedBy(func(p core.Photo) bool {
			return p.Filename == "photo_"+t1.ID+".png" && p.ContentType == "image/png" && p.Size == int64(len(img))
		})).Return(url, nil).Once()

		rec := serve(newUploadRequest(t, teacherPath, t1Token, "me.png", "image/png", img))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: dataBody(t, teacherDetail{ID: t1.ID, Name: "T1", Subject: "Math", Photo: url}),
		}, rec)

		usr, err := app.usrRepo.GetUserByID(context.Background(), t1.ID)
		require.NoError(t, err)
		assert.Equal(t, url, usr.Photo)
	})

	t.Run("admin uploads a student photo", func(t *testing.T) {
		app.photos.On("UploadPhoto", mock.Anything, mock.Anything).Return("/media/photos/s1.jpg", nil).Once()
		rec := serve(newUploadRequest(t, "/api/v1/students/"+s1.ID+"/photo", getToken(t, app, admin), "s1.jpg", "image/jpeg", img))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: dataBody(t, studentDetail{ID: s1.ID, Name: "S1", Email: "s1@x.com", Photo: "/media/photos/s1.jpg"}),
		}, rec)
	})

	t.Run("store failure", func(t *testing.T) {
		app.photos.On("UploadPhoto", mock.Anything, mock.Anything).Return("", errors.New("cloudinary is down")).Once()
		rec := serve(newUploadRequest(t, teacherPath, t1Token, "me.png", "image/png", img))
		checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: errBody(t, "Photo upload failed")}, rec)
	})

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing file",
			req:      newUploadRequest(t, teacherPath, t1Token, "", "", nil),
			wantCode: http.StatusBadRequest,
			wantMsg:  "Please upload a file",
		},
		{
			name:     "not an image",
			req:      newUploadRequest(t, teacherPath, t1Token, "cv.pdf", "application/pdf", img),
			wantCode: http.StatusBadRequest,
			wantMsg:  "Please upload an image file",
		},
		{
			name:     "too large",
			req:      newUploadRequest(t, teacherPath, t1Token, "me.png", "image/png", bytes.Repeat([]byte("x"), 1001)),
			wantCode: http.StatusBadRequest,
			wantMsg:  "Please upload an image less than 1000",
		},
		{
			name:     "someone else",
			req:      newUploadRequest(t, teacherPath, getToken(t, app, t2), "me.png", "image/png", img),
			wantCode: http.StatusForbidden,
			wantMsg:  "Unauthorized to update this teacher",
		},
		{
			name:     "wrong role",
			req:      newUploadRequest(t, teacherPath, getToken(t, app, s1), "me.png", "image/png", img),
			wantCode: http.StatusForbidden,
			wantMsg:  "Role student is not authorized to access this route",
		},
		{
			name:     "unknown teacher",
			req:      newUploadRequest(t, "/api/v1/teachers/5f8d0d55b54764421b7156c9/photo", t1Token, "me.png", "image/png", img),
			wantCode: http.StatusNotFound,
			wantMsg:  "Teacher with ID 5f8d0d55b54764421b7156c9 not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: errBody(t, tt.wantMsg)}, serve(tt.req))
		})
	}

	app.photos.AssertExpectations(t)
}
