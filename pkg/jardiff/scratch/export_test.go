package scratch

// SetRemoveFunc replaces the recursive removal used by p.
func SetRemoveFunc(p *Provider, fn func(string) error) {
	p.removeAll = fn
}
