package summarizer

const summarizePageSystem = `You are a helpful assistant that summarizes web page content and evaluates its interest level.
Your task is to:
1. Create a concise summary of the web page content provided.
2. Assign an interest score from 1 to 10, where 10 is extremely interesting and relevant.
3. Extract or create an appropriate title for the content.

Provide your response in the requested format.`

const summarizePageUser = `Please summarize the following web page content and provide an interest score.

Web page URL: $LINK

Content:
$WEB_PAGE

Provide a concise summary that captures the key points. Then assign an interest score from 1-10
based on how interesting, relevant, and valuable this content is for a technical newsletter.`

const abstractSystem = `You are a newsletter editor specialized in creating engaging abstracts.
Your task is to create a comprehensive, engaging abstract that introduces the topics
covered in the newsletter based on the provided summaries.

The abstract should:
1. Highlight the most interesting themes and topics from the summaries
2. Be engaging and professional in tone
3. Be between 150-250 words
4. Entice the reader to explore the newsletter further

Provide your response in the requested format.`

const abstractUser = `Please create an engaging abstract for a technical newsletter based on the following summaries:

$SUMMARIES

Write a compelling introduction that highlights the key themes and most interesting insights from these summaries.
The abstract should give readers a good overview of what they'll find in the newsletter while encouraging them to read further.`
