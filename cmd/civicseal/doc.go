/*
Command civicseal runs the document notarization service.

Subcommands:

	serve     run the HTTP API (default)
	migrate   apply index migrations and exit

Every flag can also be set through a CIVICSEAL_* environment variable, e.g.
CIVICSEAL_INDEX_DSN or CIVICSEAL_SERVICE_SECRET. Run "civicseal serve --help"
for the full list.
*/
package main
