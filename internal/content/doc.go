// Package content crawls each canonical event's source pages for a
// description and photos, polishes the description into the three
// storefront languages, and caches the result so a re-run within the
// refresh window never re-fetches pages whose sources haven't changed.
package content
