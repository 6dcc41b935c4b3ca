package dayforce

import (
	"context"
	"net/url"

	"google.golang.org/api/iterator"
)

// Pager walks a paged result set one page per Next call. The first request
// is deferred until the first Next. A Pager is single-pass.
type Pager struct {
	client   *Client
	resource string
	params   url.Values
	endpoint string

	next    string
	started bool
	done    bool
	pages   int
}

// Pages returns a pager over resource with params.
func (c *Client) Pages(resource string, params url.Values) *Pager {
	return &Pager{client: c, resource: resource, params: params, endpoint: resource}
}

// Next fetches the next page. It returns iterator.Done after the last page.
func (p *Pager) Next(ctx context.Context) (*Response, error) {
	if p.done {
		return nil, iterator.Done
	}

	ctx = withEndpoint(ctx, p.endpoint)

	var (
		resp *Response
		err  error
	)
	if !p.started {
		p.started = true
		resp, err = p.client.Get(ctx, p.resource, p.params)
	} else {
		resp, err = p.client.getURL(ctx, p.next)
	}
	if err != nil {
		p.done = true
		return nil, err
	}

	p.pages++
	p.next = resp.NextURL()
	if p.next == "" {
		p.done = true
	}
	return resp, nil
}

// PageCount returns how many pages were fetched so far.
func (p *Pager) PageCount() int {
	return p.pages
}

// ForEach calls fn for every page until the result set or fn ends.
func (p *Pager) ForEach(ctx context.Context, fn func(*Response) error) error {
	for {
		resp, err := p.Next(ctx)
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(resp); err != nil {
			return err
		}
	}
}
