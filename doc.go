// Package mturk provides a signed-request client for the Amazon Mechanical Turk
// Requester API (the legacy, operation based REST interface).
//
// A Client turns an operation name plus a set of parameters into a single
// HMAC-SHA1 signed HTTP GET:
//
//   - Fixed protocol fields (Service, AWSAccessKeyId, Version, Operation,
//     Signature, Timestamp) are added to every request
//   - Sequence parameters are flattened into the API's indexed list form
//   - The response body is classified as valid or invalid using the API's
//     Request/IsValid and Errors markers
//
// Typical usage:
//
//	client := mturk.New(accessKeyID, secretAccessKey,
//	    mturk.WithSandbox(true),
//	    mturk.WithTimeout(10*time.Second),
//	)
//	resp, err := client.Get(ctx, "SearchHITs", mturk.Params{
//	    "PageSize":      10,
//	    "ResponseGroup": []string{"Minimal", "HITDetail"},
//	})
//	if r, ok := mturk.AsRequestFailure(err); ok {
//	    // the API answered, but not with a valid result; inspect r.Errors
//	}
//
// A Client freezes its Timestamp on the first signed request and reuses it for
// every later request, so a long lived process should create a new Client per
// logical batch of work. There are no retries, no caching and no background
// work: Get performs exactly one round trip.
package mturk
