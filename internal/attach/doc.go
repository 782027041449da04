// Package attach implements the leaf operations that hang media and
// metadata off existing tracking entities: thumbnails, reviewable versions,
// notes and time logs. It also appoints the credential user to tasks,
// lists that user's tasks in progress and locates exported media on disk.
//
// Operations return errors tagged with the tracking markers (ErrNotFound,
// ErrUpload, ErrPermission, ErrValidation). Retries are left to callers.
package attach
