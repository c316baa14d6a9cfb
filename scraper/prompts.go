package scraper

// Prompt templates are versioned constants: the JSON shapes they request are
// part of the contract that ParseListings and ParseSelectorMap validate.
// Changing a shape means a new constant and a matching parser change.

// analysisPromptV1 wraps a task instruction and the captured page markup.
const analysisPromptV1 = `Analyze the HTML page below and follow the instructions.

%s

Page markup:
%s`

// listingDiscoveryPromptV1 asks for the ranked product links of a
// search-results page.
const listingDiscoveryPromptV1 = `Analyze this HTML search-results page and build a JSON object of this exact shape:
{
  "products": [
    {"link": "absolute URL to product page", "search_position": 1},
    {"link": "absolute URL to product page", "search_position": 2}
  ]
}
- "link" is the full absolute URL of the product page (prepend the site's base URL if the href is relative).
- "search_position" is the product's 1-based position within the search results.
Selection requirements:
- Only process the primary search-results block (the product catalog, grid, or list).
- Ignore banners, ads, recommended-product carousels, and other secondary blocks.
- Include only active, visible products; skip hidden ones.
- No field may be null: every entry must have a valid link and search_position.
Return ONLY the JSON object, with no explanations, comments, or extra text.`

// selectorDiscoveryPromptV1 asks for stable per-field CSS selectors of a
// product page. The selector map is discovered once per platform per run.
const selectorDiscoveryPromptV1 = `Provide stable CSS selectors (classes, IDs, or nested attributes) usable with a headless browser. Respond with a JSON object of this exact shape:
{
  "title_selector": "CSS selector for the product name",
  "price_selector": "CSS selector for the product price",
  "currency_selector": "CSS selector for the currency symbol",
  "rating_selector": "either a CSS selector for a numeric rating OR an object {\"selector\": \"...\", \"percent_attribute\": \"...\"}",
  "reviews_count_selector": "CSS selector for the number of reviews",
  "availability_selector": "CSS selector for the availability status",
  "characteristics_selector": "CSS selector for the button/link that expands product characteristics"
}
- rating_selector: if the rating is shown as a number, return a plain CSS selector for it. If it is rendered as a percentage (for example style="width:80%"), return the object form naming the element selector and the attribute holding the percentage.
Requirements:
- Prefer stable classes or IDs without state or color modifiers.
- Do not use selectors with state modifiers (green, red, disabled).
- Do not use framework-specific component tags; only classes or attributes of child HTML elements.
- Avoid overly generic or dynamically generated classes (.ng-star-inserted, .active, .selected).
- Selectors must be minimal, precise, and valid CSS.
Return ONLY the JSON object, with no explanations or comments.`
