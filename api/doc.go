// Package api exposes the notarization service over HTTP/JSON.
//
// Routes are mounted on a chi router by Handler.RegisterRoutes:
//
//	POST   /api/auth/register              create an identity with a custodial key
//	POST   /api/auth/login                 exchange credentials for a session token
//	GET    /api/me                         the caller's identity
//	GET    /api/identities/{email}         another identity's address and public key
//	POST   /api/documents                  register a document (multipart "file")
//	GET    /api/documents                  the caller's documents
//	POST   /api/documents/verify           verify an uploaded file (anonymous)
//	POST   /api/documents/revoke           revoke by file or {"hash"}
//	GET    /api/documents/{hash}/key       recover the escrowed key (submitter only)
//	POST   /api/documents/{hash}/share     share with {"recipientEmail"}
//	POST   /api/documents/{hash}/links     create a public link {"expiresAt"}
//	GET    /api/links                      the caller's public links
//	DELETE /api/links/{id}                 disable a public link
//	GET    /api/shared                     shares addressed to the caller
//	GET    /api/shared/{hash}              open a shared document
//	GET    /api/public/links/{id}          resolve a public link (anonymous)
//
// Authenticated routes expect "Authorization: Bearer <token>". Errors are
// returned as {"error": "..."} with a status derived from the service error.
package api
