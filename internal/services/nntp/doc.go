// Package nntp is a small NNTP reader client covering what the crawler
// needs: greeting, AUTHINFO USER/PASS, GROUP, XOVER and QUIT.
//
// Overview rows are streamed to a callback as they arrive so large windows
// never sit in memory. Status replies outside the expected class surface as
// *ReplyError; 4xx replies report Temporary() so callers can retry on a
// later run.
package nntp
