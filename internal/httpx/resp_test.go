package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func serve(r *gin.Engine) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestOK(t *testing.T) {
	r := setupTestRouter()
	r.GET("/test", func(c *gin.Context) {
		OK(c, gin.H{"url": "example.com"})
	})

	w, resp := serve(r)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if resp.Code != CodeSuccess {
		t.Errorf("Expected code %d, got %d", CodeSuccess, resp.Code)
	}
	if resp.Message != "success" {
		t.Errorf("Expected message 'success', got '%s'", resp.Message)
	}
	if resp.Data == nil {
		t.Error("Expected data to be non-nil")
	}
}

func TestOKMsg(t *testing.T) {
	r := setupTestRouter()
	r.GET("/test", func(c *gin.Context) {
		OKMsg(c, "Site example.com enabled", nil)
	})

	_, resp := serve(r)
	if resp.Message != "Site example.com enabled" {
		t.Errorf("Expected custom message, got '%s'", resp.Message)
	}
}

func TestOKItems(t *testing.T) {
	r := setupTestRouter()
	r.GET("/test", func(c *gin.Context) {
		OKItems(c, []string{"a.com", "b.com"}, 2)
	})

	_, resp := serve(r)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %T", resp.Data)
	}
	if data["total"] != float64(2) {
		t.Errorf("Expected total 2, got %v", data["total"])
	}
}

func TestFailErr(t *testing.T) {
	r := setupTestRouter()
	r.GET("/test", func(c *gin.Context) {
		FailErr(c, ErrNotFound(""))
	})

	w, resp := serve(r)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if resp.Code != CodeNotFound {
		t.Errorf("Expected code %d, got %d", CodeNotFound, resp.Code)
	}
	if resp.Data != nil {
		t.Error("Expected data to be nil for error response")
	}
}

func TestFailErr_HidesInternalError(t *testing.T) {
	r := setupTestRouter()
	r.GET("/test", func(c *gin.Context) {
		FailErr(c, ErrInternalError("", errors.New("dsn has password hunter2")))
	})

	w, resp := serve(r)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if resp.Message != "internal error" {
		t.Errorf("Expected message 'internal error', got '%s'", resp.Message)
	}
}

func TestFailErr_WithData(t *testing.T) {
	r := setupTestRouter()
	r.GET("/test", func(c *gin.Context) {
		FailErr(c, ErrExternalError("ssl failed", nil).WithData(gin.H{"backup": "/backups/example.com"}))
	})

	_, resp := serve(r)
	if resp.Data == nil {
		t.Error("Expected data to be returned")
	}
}
