// Package emrwal implements the remote client of the EMR WAL workspace
// service.
//
// Requests use the AWS JSON 1.1 protocol: a signed POST to the regional
// endpoint with the operation named in the X-Amz-Target header
// ("EMRWAL.<Operation>"). Credentials and region come from the standard AWS
// configuration chain unless static credentials are configured.
//
// Throttling, 5xx responses and connection errors are retried inside the
// client by the SDK's standard retryer. Whatever failure remains is returned
// as an *engine.RemoteError whose Kind is derived from the service error code,
// so callers switch on the kind rather than on error types.
package emrwal
