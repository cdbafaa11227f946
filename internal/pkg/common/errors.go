package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is(err, ErrRemoteService) 可用於包裝後的錯誤
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap 以原始錯誤建立副本，預定義錯誤本身不會被修改
func (e *CustomError) Wrap(err error) *CustomError {
	return &CustomError{Code: e.Code, Message: e.Message, Status: e.Status, Err: err}
}

// WithMessage 以新的訊息建立副本
func (e *CustomError) WithMessage(format string, args ...interface{}) *CustomError {
	return &CustomError{Code: e.Code, Message: fmt.Sprintf(format, args...), Status: e.Status, Err: e.Err}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return ErrValidation.WithMessage("%s", message)
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// AsCustomError 取出錯誤鏈中的 CustomError，找不到時回傳內部錯誤
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInternalError.Wrap(err)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeValidation       = "VALIDATION_ERROR"   // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"  // 404
	ErrCodeImportInProgress = "IMPORT_IN_PROGRESS" // 409
	ErrCodeInvalidState     = "INVALID_STATE"      // 409
	ErrCodeStaleResult      = "STALE_RESULT"       // 409
	ErrCodeUnsupported      = "UNSUPPORTED_PLATFORM"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429

	// 匯入流程錯誤
	ErrCodeParsing            = "PARSING_ERROR"
	ErrCodeRemoteService      = "REMOTE_SERVICE_ERROR"
	ErrCodeMaxRetriesExceeded = "MAX_RETRIES_EXCEEDED"

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest      = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrValidation          = NewError(ErrCodeValidation, "輸入驗證失敗", http.StatusBadRequest, nil)
	ErrNotFound            = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrSessionNotFound     = NewError(ErrCodeSessionNotFound, "匯入工作階段不存在", http.StatusNotFound, nil)
	ErrImportInProgress    = NewError(ErrCodeImportInProgress, "已有匯入正在進行", http.StatusConflict, nil)
	ErrInvalidState        = NewError(ErrCodeInvalidState, "目前狀態不允許此操作", http.StatusConflict, nil)
	ErrStaleResult         = NewError(ErrCodeStaleResult, "工作階段已重設，結果已丟棄", http.StatusConflict, nil)
	ErrUnsupportedPlatform = NewError(ErrCodeUnsupported, "不支援的社群平台", http.StatusUnprocessableEntity, nil)
	ErrTooManyRequests     = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 匯入流程錯誤
	ErrParsing            = NewError(ErrCodeParsing, "無法解析食譜內容", http.StatusUnprocessableEntity, nil)
	ErrRemoteService      = NewError(ErrCodeRemoteService, "遠端匯入服務錯誤", http.StatusBadGateway, nil)
	ErrMaxRetriesExceeded = NewError(ErrCodeMaxRetriesExceeded, "文字辨識重試次數已達上限", http.StatusBadGateway, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)

	// 業務錯誤
	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "無效的圖片格式", http.StatusBadRequest, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "快取未命中", http.StatusNotFound, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrQueueFull          = NewError("QUEUE_FULL", "匯入佇列已滿", http.StatusServiceUnavailable, nil)
)
