/*
go-posecam runs a two stage inference pipeline over live camera frames.  An
SSD object detector locates people in each frame and a single person PoseNet
model is then run on a padded crop of every person found, producing 17 body
keypoints.  The results are rendered as an overlay on the camera preview.

The root package holds the configuration constants, the error kinds shared by
all sub packages and model label parsing.  See cmd/posecam for the runnable
application.
*/
package posecam
