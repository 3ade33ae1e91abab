package newtfs

import "github.com/hashicorp/go-multierror"

// appendErr accumulates err onto agg, returning a *multierror.Error as soon as
// the first failure has been collected. Used by Unmount to aggregate its
// independent flush steps (object graph, superblock, inode bitmap, data
// bitmap) into a single reported error without masking any of them.
func appendErr(agg error, err error) error {
	if err == nil {
		return agg
	}
	return multierror.Append(agg, err)
}
