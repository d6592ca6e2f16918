package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"go.uber.org/zap"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }

func newRequest(method, path, body string) *http.Request {
	return httptest.NewRequest(method, path, strings.NewReader(body))
}
