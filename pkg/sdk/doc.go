// Package sdk is a thin Go client for the skylens analysis API.
//
// A Client wraps the HTTP surface with typed requests and responses:
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//
//	result, err := client.Clusters(ctx, sdk.ClustersRequest{
//		Filter: &sdk.Filter{
//			Must: []sdk.Condition{{Key: "service", Match: "checkout"}},
//		},
//		ClusterCount: 5,
//	})
//
// Insight endpoints answer degraded runs in-band: Clusters always returns a
// structurally valid result, with Error or Message set when the run could not
// complete. Transport and validation failures surface as *APIError.
package sdk
