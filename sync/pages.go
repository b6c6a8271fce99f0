package sync

// firstPage is the page index the Listrak report operations start from.
const firstPage = 1

// PageCursor yields page indices from firstPage upwards. It is unbounded:
// the caller stops consuming when the service returns an empty page, which
// is the sole termination condition for paginated retrieval.
type PageCursor struct {
	next int
}

func GenPages() *PageCursor {
	return &PageCursor{next: firstPage}
}

func (p *PageCursor) Next() int {
	page := p.next
	p.next++
	return page
}
