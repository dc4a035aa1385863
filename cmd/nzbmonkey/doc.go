// Command nzbmonkey crawls newsgroup overviews and writes NZB documents.
//
// Subcommands:
//
//	crawl [groups...]    scan groups on the news server and write documents
//	index --from FILE    build documents from an overview dump
//	parse SUBJECT...     show how subjects are parsed
//	state list|set|reset inspect or edit per-group cursors
//	config init|validate manage the configuration file
//	check                verify directories and the news server
//
// Exit status is 0 on success, 1 when a run failed or finished with failed
// groups or documents, and 2 for configuration and usage errors.
package main
