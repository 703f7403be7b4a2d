// Package build is the client for the BUILD (inventory) module: aliquots
// and samples.
//
// The list endpoints are paged; Aliquots and Samples walk them lazily. The
// single-record endpoints are not always available, so GetAliquot and
// GetSample fall back to scanning the list with pagination.FindRecord when
// the direct fetch fails.
//
// Example:
//
//	b := build.New(api)
//	for aliquot, err := range b.Aliquots(ctx, build.ListParams{PageSize: 50}) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(aliquot.RecordID())
//	}
package build
