// Package drive provides a client for the Google Drive v3 API restricted to
// the drive.file scope.
//
// Under drive.file the server only sees files it created itself or files the
// user granted through the Google Picker. Every method maps onto a single
// upstream call:
//   - List: files.list with a filter built by BuildQuery
//   - Get: files.get
//   - GetContent: files.get?alt=media, or files.export for Docs, Sheets and Slides
//   - Create, CreateFolder: files.create
//   - Update: files.update with optional media and parent changes
//   - Delete: files.delete
//   - Copy: files.copy
//
// Upstream rejections are returned as *APIError, wrapped with the failing
// operation:
//
//	_, err := client.Get(ctx, id)
//	var apiErr *drive.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
//	    // the user has not granted access to this file
//	}
//
// Example usage:
//
//	client, err := drive.NewClient(ctx, store.TokenSource(ctx))
//	if err != nil {
//	    return err
//	}
//
//	page, err := client.List(ctx, drive.ListOptions{
//	    Query:    drive.BuildQuery(drive.SearchPredicate{Query: "report"}),
//	    PageSize: 20,
//	})
package drive
