// Package changes implements the change-subscription bus and the
// notifiers that feed it.
//
// Writers report the identifier they touched through a Notifier. The
// Immediate notifier forwards each report to the Bus right away; the
// Delayed notifier buffers reports for the duration of a transaction and
// forwards the deduplicated set with SendAll once it commits.
//
// A listener registered on L observes a change on C when:
//   - C equals L
//   - C lies below L and the listener asked for descendants
//   - L lies below C (a collection change invalidates its members)
//   - C is unspecified (re-check everything)
package changes
