// Package server exposes the analysis endpoint and the live log stream over HTTP.
package server
