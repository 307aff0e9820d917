package ident

import "os/user"

// Caller identifies the local account driving this process, resolved
// once at startup. Groups are the account's unix group names.
type Caller struct {
	User   string
	Groups []string
}

// CurrentCaller resolves the invoking unix account and its groups.
// Lookup failures leave fields empty, which reads as no membership:
// a configured allow list then denies the caller.
func CurrentCaller() Caller {
	u, err := user.Current()
	if err != nil {
		return Caller{}
	}
	c := Caller{User: u.Username}
	ids, err := u.GroupIds()
	if err != nil {
		return c
	}
	for _, id := range ids {
		g, err := user.LookupGroupId(id)
		if err != nil {
			continue
		}
		c.Groups = append(c.Groups, g.Name)
	}
	return c
}
