package fixflow

// AfterReview routes out of the review step. An approved fix moves on to
// verification; a rejected one loops back to generation carrying the
// reviewer's feedback. Rejection never consumes a verification run.
func AfterReview(state State) string {
	if state.LastVerdict != nil && state.LastVerdict.Approved {
		return StepVerifyFix
	}
	return StepGenerateFix
}

// AfterVerify routes out of the verification step. A passing fix is
// submitted. A failing fix retries while attempts remain; once the
// ceiling is reached the run gives up.
func AfterVerify(state State, maxAttempts int) string {
	if state.Verified() {
		return StepSubmitFix
	}
	if state.Attempts >= maxAttempts {
		return StepGiveUp
	}
	return StepGenerateFix
}
