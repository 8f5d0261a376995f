package imagegen

import "errors"

var (
	ErrDecodeImage      = errors.New("imagegen: source image is not decodable")
	ErrUploadFailed     = errors.New("imagegen: image upload failed")
	ErrChannelProvision = errors.New("imagegen: callback channel provisioning failed")
	ErrSubmitFailed     = errors.New("imagegen: task submission failed")
	ErrRemoteFailed     = errors.New("imagegen: backend reported failure")
	ErrPollTimeout      = errors.New("imagegen: polling timed out")
)
