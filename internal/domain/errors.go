package domain

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound 由 repository 在查询不到记录时返回
var ErrRecordNotFound = errors.New("记录不存在")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在", e.Resource)
}

func NewNotFoundError(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(format string, args ...any) *ForbiddenError {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError 携带完整的冲突和警告列表，方便调用方展示
type ConflictError struct {
	Message   string
	Conflicts []ConflictItem
	Warnings  []ConflictItem
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string, report *ConflictReport) *ConflictError {
	e := &ConflictError{
		Message:   message,
		Conflicts: make([]ConflictItem, 0),
		Warnings:  make([]ConflictItem, 0),
	}
	if report != nil {
		e.Conflicts = report.Conflicts
		e.Warnings = report.Warnings
	}
	return e
}

// ConcurrencyError 表示写入时发现的并发冲突，例如版本号不一致或违反排他约束
type ConcurrencyError struct {
	Message string
	Err     error
}

func (e *ConcurrencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

func NewConcurrencyError(message string, err error) *ConcurrencyError {
	return &ConcurrencyError{Message: message, Err: err}
}
