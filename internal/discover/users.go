package discover

import (
	"context"
)

const userIncludes = "?include_inactive=true&include[]=avatar_url&include[]=enrollments&include[]=email&include[]=observed_users&include[]=can_be_removed&include[]=custom_links"

// users dumps the full course roster to path. The roster is archive-only;
// nothing in it is downloaded.
func (e *Env) users(ctx context.Context, courseID int64, path string) error {
	pages, err := e.Client.GetAll(ctx, e.Client.URL("/courses/%d/users%s", courseID, userIncludes))
	if err != nil {
		return err
	}
	return dumpPages(path, pages)
}
