package errors

import (
	"fmt"
)

type ErrFetchFailed struct {
	SourceID string
	Cause    error
}

func (e *ErrFetchFailed) Error() string {
	return fmt.Sprintf("не вдалося отримати графік для джерела %s: %v", e.SourceID, e.Cause)
}

func (e *ErrFetchFailed) Unwrap() error {
	return e.Cause
}

func (e *ErrFetchFailed) Is(target error) bool {
	_, ok := target.(*ErrFetchFailed)
	return ok
}

// ErrEmptyDocument — документ без жодної черги: вважається невдалим
// отриманням, а не порожнім графіком.
type ErrEmptyDocument struct {
	SourceID string
}

func (e *ErrEmptyDocument) Error() string {
	return "джерело " + e.SourceID + " повернуло документ без черг"
}

func (e *ErrEmptyDocument) Is(target error) bool {
	_, ok := target.(*ErrEmptyDocument)
	return ok
}

type ErrSourceNotFound struct {
	SourceID string
}

func (e *ErrSourceNotFound) Error() string {
	return "джерело не знайдено: " + e.SourceID
}

func (e *ErrSourceNotFound) Is(target error) bool {
	_, ok := target.(*ErrSourceNotFound)
	return ok
}

type ErrQueueNotFound struct {
	QueueID string
}

func (e *ErrQueueNotFound) Error() string {
	return "черга не знайдена: " + e.QueueID
}

func (e *ErrQueueNotFound) Is(target error) bool {
	_, ok := target.(*ErrQueueNotFound)
	return ok
}

type ErrUserNotFound struct {
	UserID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("користувача не знайдено: %d", e.UserID)
}

func (e *ErrUserNotFound) Is(target error) bool {
	_, ok := target.(*ErrUserNotFound)
	return ok
}

type ErrUnknownCommand struct {
	Command string
}

func (e *ErrUnknownCommand) Error() string {
	return "невідома команда: " + e.Command
}

func (e *ErrUnknownCommand) Is(target error) bool {
	_, ok := target.(*ErrUnknownCommand)
	return ok
}

// ErrSnapshotNotFound — у бекенді ще немає збереженого знімка налаштувань.
type ErrSnapshotNotFound struct{}

func (e *ErrSnapshotNotFound) Error() string {
	return "знімок налаштувань не знайдено"
}

func (e *ErrSnapshotNotFound) Is(target error) bool {
	_, ok := target.(*ErrSnapshotNotFound)
	return ok
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}
