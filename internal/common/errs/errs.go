package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 领域错误分类（闭集）。
// 引擎的每一种失败都必须落在其中一个分类上，调用方按分类决策（重试/提示/拒绝）。
type Kind int

const (
	KindUnknown             Kind = iota
	KindNotFound                 // 实体不存在
	KindInvalidInput             // 入参非法（时间窗、电量范围、状态字符串等）
	KindInvalidState             // 当前生命周期状态下不允许该操作
	KindResourceUnavailable      // 车辆不可用（非 Available）
	KindSchedulingConflict       // 预约时间窗与既有预约重叠
	KindCapacityExceeded         // 站点无可用车位
	KindUnauthorized             // 员工与站点不匹配等权限问题
	KindBusy                     // 锁/事务竞争超时，调用方可重试
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindResourceUnavailable:
		return "resource_unavailable"
	case KindSchedulingConflict:
		return "scheduling_conflict"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindUnauthorized:
		return "unauthorized"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Error 携带分类的领域错误。支持 errors.Is（按分类匹配）与 errors.As。
type Error struct {
	Knd Kind
	Msg string
	Err error // 可选的底层错误
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Knd, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Knd, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, errs.NotFound) 这类按“分类哨兵”的比较成立。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Knd == e.Knd && (t.Msg == "" || t.Msg == e.Msg)
}

// 分类哨兵：仅用于 errors.Is 比较，不要直接返回给调用方。
var (
	NotFound            = &Error{Knd: KindNotFound}
	InvalidInput        = &Error{Knd: KindInvalidInput}
	InvalidState        = &Error{Knd: KindInvalidState}
	ResourceUnavailable = &Error{Knd: KindResourceUnavailable}
	SchedulingConflict  = &Error{Knd: KindSchedulingConflict}
	CapacityExceeded    = &Error{Knd: KindCapacityExceeded}
	Unauthorized        = &Error{Knd: KindUnauthorized}
	Busy                = &Error{Knd: KindBusy}
)

// New 构造一个带分类的错误。
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Knd: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 在保留底层错误的同时附加分类与说明。
func Wrap(k Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Knd: k, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 提取错误的分类；非领域错误返回 KindUnknown。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Knd
	}
	return KindUnknown
}

// HTTPStatus 分类到 HTTP 状态码的统一映射（仅在传输层使用）。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInvalidState:
		return http.StatusConflict
	case KindResourceUnavailable:
		return http.StatusConflict
	case KindSchedulingConflict:
		return http.StatusConflict
	case KindCapacityExceeded:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusForbidden
	case KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
