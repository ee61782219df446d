package assess

import "fmt"

const promptTemplate = `You are an expert IELTS Speaking examiner. The user has described an image. Your task is to:
1.  Provide your own concise description of the image.
2.  Compare your description with the user's transcribed text, which is: "%s".
3.  Provide a detailed assessment of the user's response based on the comparison, focusing on accuracy and descriptive quality.`

// BuildPrompt embeds the transcript verbatim in the examiner instructions.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}
