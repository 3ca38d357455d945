// Package app assembles the CivicSeal services from configuration.
package app
