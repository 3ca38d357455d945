// Package auth registers custodial identities and issues session tokens.
package auth
