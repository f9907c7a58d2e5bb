// Package remote provides a client for the gallery service's web API.
//
// This package includes:
//   - A configurable HTTP client with proper headers and error handling
//   - Gallery metadata lookup through the JSON API
//   - Helper functions for constructing and parsing service URLs
//   - Retry-aware image downloads with typed errors
//
// Example usage:
//
//	client := remote.NewClient(30*time.Second, logger.GetLogger())
//	client.SetCredentials(memberID, passHash)
//
//	gid, token, err := remote.ParseGalleryURL("https://e-hentai.org/g/618395/0439fa3666/")
//	meta, err := client.FetchGalleryMetadata(ctx, gid, token)
//	if err != nil {
//	    if apiErr, ok := err.(*errors.Error); ok {
//	        switch apiErr.Type {
//	        case errors.ErrorTypeAuth:
//	            // Handle authentication error
//	        case errors.ErrorTypeRateLimit:
//	            // Handle rate limit
//	        }
//	    }
//	}
//
//	keys, _ := client.FetchPageKeys(ctx, gid, token, 0)
//	imageURL, _ := client.FetchImageURL(ctx, remote.PageURL(client.BaseURL(), keys[1], gid, 1))
//	data, _ := client.DownloadImage(ctx, imageURL)
package remote
