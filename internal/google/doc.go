// Package google manages the Google OAuth credential used for Drive access.
//
// A CredentialStore holds one access/refresh token pair, persists it to a
// JSON file and refreshes it transparently when it expires. The file is the
// only durable state of the server and is rewritten wholesale on every
// change; persist failures are logged and the in-memory credential keeps
// working.
//
// Two ways exist to obtain a credential:
//   - the consent flow (AuthURL, then ExchangeCode with the returned code),
//     completed either by the HTTP transport's callback route or by a
//     one-shot CallbackServer on the loopback interface;
//   - SetDirect with a token pair obtained elsewhere.
//
// Only the drive.file scope is ever requested.
package google
