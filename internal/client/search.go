package client

import (
	"sync/atomic"

	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
)

// SearchHandler receives the entries and references of a search as they
// arrive.
type SearchHandler interface {
	HandleEntry(entry *ldap.SearchResultEntry, controls []ldap.Control)
	HandleReference(ref *ldap.SearchResultReference, controls []ldap.Control)
}

// SearchHandlerFuncs adapts functions to SearchHandler. Nil fields ignore
// the corresponding responses.
type SearchHandlerFuncs struct {
	Entry     func(entry *ldap.SearchResultEntry, controls []ldap.Control)
	Reference func(ref *ldap.SearchResultReference, controls []ldap.Control)
}

func (h SearchHandlerFuncs) HandleEntry(entry *ldap.SearchResultEntry, controls []ldap.Control) {
	if h.Entry != nil {
		h.Entry(entry, controls)
	}
}

func (h SearchHandlerFuncs) HandleReference(ref *ldap.SearchResultReference, controls []ldap.Control) {
	if h.Reference != nil {
		h.Reference(ref, controls)
	}
}

// SearchFuture is the outstanding result of a search. Entries and
// references go to the SearchHandler; only SearchResultDone completes the
// future and anything arriving after completion is dropped.
type SearchFuture struct {
	*ResultFuture
	search SearchHandler

	entries    atomic.Int64
	references atomic.Int64
}

func newSearchFuture(id int32, conn requester, search SearchHandler, handler ResultHandler, executor Executor) *SearchFuture {
	if search == nil {
		search = SearchHandlerFuncs{}
	}
	return &SearchFuture{
		ResultFuture: newResultFuture(id, conn, handler, executor),
		search:       search,
	}
}

// Entries returns the number of entries delivered.
func (f *SearchFuture) Entries() int64 {
	return f.entries.Load()
}

// References returns the number of references delivered.
func (f *SearchFuture) References() int64 {
	return f.references.Load()
}

func (f *SearchFuture) handleResponse(m *ldap.Message) bool {
	switch op := m.Op.(type) {
	case *ldap.SearchResultEntry:
		if f.IsDone() {
			return false
		}
		f.entries.Add(1)
		f.invoke(func() { f.search.HandleEntry(op, m.Controls) })
		return false
	case *ldap.SearchResultReference:
		if f.IsDone() {
			return false
		}
		f.references.Add(1)
		f.invoke(func() { f.search.HandleReference(op, m.Controls) })
		return false
	case *ldap.SearchResultDone:
		f.complete(m, op.Result)
		return true
	default:
		return false
	}
}
