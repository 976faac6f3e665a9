// Package apperr holds the sentinel errors shared across NoteWiki packages.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrParse        = errors.New("parse error")
	ErrIO           = errors.New("io error")
	ErrArg          = errors.New("argument error")
	ErrInvalidTitle = errors.New("invalid title")
	ErrTitleTaken   = errors.New("title already taken")
)
