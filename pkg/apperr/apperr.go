// Package apperr 定义领域错误码。调用方通过 errors.Is 按错误码比较，
// HTTP 层把错误码映射为状态码。
package apperr

import (
	"errors"
	"fmt"
)

// Code 错误码
type Code string

const (
	CodeValidation              Code = "VALIDATION"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeNotOwner                Code = "NOT_OWNER"
	CodeNotFound                Code = "NOT_FOUND"
	CodeConflict                Code = "CONFLICT"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeDuplicateActiveProposal Code = "DUPLICATE_ACTIVE_PROPOSAL"
	CodeContractAlreadyExists   Code = "CONTRACT_ALREADY_EXISTS"
	CodeIdeaNotVisible          Code = "IDEA_NOT_VISIBLE"
	CodeProposalNotAccepted     Code = "PROPOSAL_NOT_ACCEPTED"
	CodeNotReadyToSign          Code = "NOT_READY_TO_SIGN"
	CodeAlreadySigned           Code = "ALREADY_SIGNED"
	CodeMissingSignatures       Code = "MISSING_SIGNATURES"
	CodeHasActiveProposals      Code = "HAS_ACTIVE_PROPOSALS"
	CodeInternal                Code = "INTERNAL"
)

// Error 领域错误
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 只比较错误码
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// 哨兵错误，用于 errors.Is
var (
	ErrValidation              = &Error{Code: CodeValidation}
	ErrUnauthorized            = &Error{Code: CodeUnauthorized}
	ErrForbidden               = &Error{Code: CodeForbidden}
	ErrNotOwner                = &Error{Code: CodeNotOwner}
	ErrNotFound                = &Error{Code: CodeNotFound}
	ErrConflict                = &Error{Code: CodeConflict}
	ErrInvalidTransition       = &Error{Code: CodeInvalidTransition}
	ErrDuplicateActiveProposal = &Error{Code: CodeDuplicateActiveProposal}
	ErrContractAlreadyExists   = &Error{Code: CodeContractAlreadyExists}
	ErrIdeaNotVisible          = &Error{Code: CodeIdeaNotVisible}
	ErrProposalNotAccepted     = &Error{Code: CodeProposalNotAccepted}
	ErrNotReadyToSign          = &Error{Code: CodeNotReadyToSign}
	ErrAlreadySigned           = &Error{Code: CodeAlreadySigned}
	ErrMissingSignatures       = &Error{Code: CodeMissingSignatures}
	ErrHasActiveProposals      = &Error{Code: CodeHasActiveProposals}
	ErrInternal                = &Error{Code: CodeInternal}
)

// New 创建带消息的领域错误
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation 创建校验错误
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// NotFound 创建实体不存在错误
func NotFound(entity string, id int64) *Error {
	return New(CodeNotFound, "%s %d not found", entity, id)
}

// CodeOf 取出错误码，非领域错误返回 INTERNAL
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf 取出面向用户的消息
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if e != nil {
		return string(e.Code)
	}
	return "internal server error"
}

// IsDomain 是否为领域错误（非 INTERNAL）
func IsDomain(err error) bool {
	c := CodeOf(err)
	return c != CodeInternal
}
