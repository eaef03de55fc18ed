// Package api is a typed client for the edgeaudit analysis service.
//
// Every operation issues exactly one HTTP request. Non-2xx responses are
// normalised into *RemoteError; the client neither retries nor imposes a
// timeout, callers bound calls through the context they pass in.
package api
