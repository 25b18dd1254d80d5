package imagegen

const imagePrompt = `Create a professional, visually appealing image that represents the following content:

$SUMMARY

The image should be suitable for a technical newsletter, with a clean, modern style.
Avoid text in the image. Focus on creating a visual representation that captures the essence of the content.`
