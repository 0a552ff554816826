// Package search wraps the DuckDuckGo Instant Answer API and normalizes
// its ad-hoc JSON into a stable shape.
//
// # Normalization
//
// Search reduces a response to a SearchResult:
//
//   - Summary: first non-empty of Answer, AbstractText, Definition, the
//     first related topic's text, the first result's text, or a fixed
//     fallback sentence.
//   - Sources: AbstractSource, DefinitionSource, AbstractURL,
//     DefinitionURL, then related-topic URLs, then result URLs; empties
//     skipped, deduplicated in first-seen order, at most five entries.
//
// InstantAnswer is the secondary extraction mode: it returns a direct
// answer (with the API's answer type, or "instant") or the abstract text
// (type "abstract"), and ErrNoInstantAnswer otherwise.
//
// # Failure Model
//
// Three fault kinds, all returned as error values and never panics:
//
//   - StatusError: non-2xx HTTP response, message embeds the status code
//   - TransportError: network failure before a response was obtained
//   - DecodeError: body is not valid JSON; same surfaced message form as
//     a transport failure
//
// # Request Shape
//
// GET <base>?q=<escaped>&format=json&no_html=1&skip_disambig=1, with no
// retries and no caching. The http.Client carries a fixed timeout; finer
// cancellation belongs to the caller's context.
package search
