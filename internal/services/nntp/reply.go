package nntp

import (
	"errors"
	"fmt"
	"net/textproto"
)

// ReplyError is an unexpected NNTP status line.
type ReplyError struct {
	Command string
	Code    int
	Message string
}

func (e *ReplyError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("nntp: %d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("nntp %s: %d %s", e.Command, e.Code, e.Message)
}

// Temporary reports a 4xx reply.
func (e *ReplyError) Temporary() bool {
	return e.Code/100 == 4
}

// NoSuchGroup reports the 411 reply.
func (e *ReplyError) NoSuchGroup() bool {
	return e.Code == codeNoSuchGroup
}

const (
	codePostingAllowed   = 200
	codePostingForbidden = 201
	codeClosing          = 205
	codeGroupSelected    = 211
	codeOverviewFollows  = 224
	codeAuthAccepted     = 281
	codePasswordRequired = 381
	codeNoSuchGroup      = 411
	codeNoArticles       = 420
	codeNoArticlesRange  = 423
)

func replyError(command string, err error) error {
	var te *textproto.Error
	if errors.As(err, &te) {
		return &ReplyError{Command: command, Code: te.Code, Message: te.Msg}
	}
	return err
}
