// Package pagination walks page-numbered collections of the TeselaGen API.
//
// Most list endpoints of the platform take a 1-based pageNumber and return an
// empty JSON array once the page number runs past the last page. This package
// turns such an endpoint into a lazy sequence of records, and builds a
// bruteforce "find by id" on top of it for resources whose direct
// single-record endpoint is missing or failing.
//
// Example usage:
//
//	getPage := func(ctx context.Context, page int) ([]pagination.Record, error) {
//		return buildClient.GetAliquots(ctx, build.ListParams{PageNumber: page})
//	}
//
//	for record, err := range pagination.Documents(ctx, getPage, pagination.Config[pagination.Record]{}) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(record.RecordID())
//	}
//
//	aliquot, found, err := pagination.FindRecord(ctx, "build.aliquots", getPage, "42")
//
// Evaluation is pull-based and single-threaded:
//   - One page request per page visited, in increasing page-number order
//   - No read-ahead: a page is fetched only when the consumer needs its records
//   - Errors from the page function end the sequence and are returned verbatim
//
// A page function that never reports exhaustion makes the sequence unbounded.
package pagination
