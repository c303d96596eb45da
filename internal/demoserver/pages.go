package demoserver

// PageVersion is one rendition of a page.
type PageVersion struct {
	HTML    string
	Headers map[string]string
}

// PageDefinition holds all versions of a single page. Version 1 carries
// deliberate accessibility defects; later versions fix some or all of them.
type PageDefinition struct {
	Path        string
	Description string
	Defects     []string
	Versions    map[int]PageVersion
}

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getAboutPage(),
		getContactPage(),
	}
}

const styles = `<style>
    body { font-family: system-ui, sans-serif; margin: 0; color: #222; }
    header, main, footer { padding: 24px 48px; }
    header { background: #0b3d91; color: #fff; }
    header a { color: #fff; margin-right: 16px; }
    .hero { display: flex; gap: 32px; align-items: center; }
    .muted { color: #b8b8b8; }
    .card { border: 1px solid #ddd; border-radius: 8px; padding: 16px; margin: 12px 0; }
    button { background: #0b3d91; color: #fff; border: 0; padding: 10px 20px; border-radius: 4px; }
</style>`

const nav = `<header>
    <a href="/">Home</a>
    <a href="/about">About</a>
    <a href="/contact">Contact</a>
</header>`

// ===== HOME PAGE =====
func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Landing page with a hero image and feature cards",
		Defects:     []string{"image-alt", "color-contrast", "html-has-lang"},
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <section class="hero">
            <img src="/static/hero.svg" width="320" height="200">
            <div>
                <h1>Ship interfaces people enjoy</h1>
                <p class="muted">Low contrast tagline that is hard to read.</p>
                <div onclick="location.href='/contact'"><button>Get started</button></div>
            </div>
        </section>
        <h3>Features</h3>
        <div class="card"><img src="/static/icon.svg" width="24" height="24"> Fast</div>
        <div class="card"><img src="/static/icon.svg" width="24" height="24"> Accessible</div>
    </main>
</body>
</html>`,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <section class="hero">
            <img src="/static/hero.svg" width="320" height="200" alt="Dashboard preview">
            <div>
                <h1>Ship interfaces people enjoy</h1>
                <p>A tagline with readable contrast.</p>
                <a href="/contact"><button>Get started</button></a>
            </div>
        </section>
        <h2>Features</h2>
        <div class="card"><img src="/static/icon.svg" width="24" height="24" alt=""> Fast</div>
        <div class="card"><img src="/static/icon.svg" width="24" height="24" alt=""> Accessible</div>
    </main>
</body>
</html>`,
			},
		},
	}
}

// ===== ABOUT PAGE =====
func getAboutPage() PageDefinition {
	return PageDefinition{
		Path:        "/about",
		Description: "Long text page with a skipped heading level and an empty link",
		Defects:     []string{"link-name", "heading-order"},
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <title>About - Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <h1>About us</h1>
        <h4>Our story</h4>
        <p>We build tools that make interfaces better for everyone.</p>
        <p><a href="https://example.com/team"><img src="/static/icon.svg" width="16" height="16"></a></p>
        <div style="height: 1600px">Scroll to see the footer.</div>
    </main>
    <footer>Copyright Polish Demo</footer>
</body>
</html>`,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <title>About - Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <h1>About us</h1>
        <h2>Our story</h2>
        <p>We build tools that make interfaces better for everyone.</p>
        <p><a href="https://example.com/team">Meet the team</a></p>
        <div style="height: 1600px">Scroll to see the footer.</div>
    </main>
    <footer>Copyright Polish Demo</footer>
</body>
</html>`,
			},
		},
	}
}

// ===== CONTACT PAGE =====
func getContactPage() PageDefinition {
	return PageDefinition{
		Path:        "/contact",
		Description: "Contact form with unlabeled inputs",
		Defects:     []string{"label", "select-name"},
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Contact - Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <h1>Contact</h1>
        <form method="POST" action="/contact">
            <input type="text" name="name" placeholder="Name">
            <input type="email" name="email" placeholder="Email">
            <select name="topic">
                <option>Sales</option>
                <option>Support</option>
            </select>
            <textarea name="message"></textarea>
            <button type="submit">Send</button>
        </form>
    </main>
</body>
</html>`,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Contact - Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <h1>Contact</h1>
        <form method="POST" action="/contact">
            <label for="name">Name</label>
            <input id="name" type="text" name="name">
            <label for="email">Email</label>
            <input id="email" type="email" name="email">
            <select name="topic">
                <option>Sales</option>
                <option>Support</option>
            </select>
            <label for="message">Message</label>
            <textarea id="message" name="message"></textarea>
            <button type="submit">Send</button>
        </form>
    </main>
</body>
</html>`,
			},
			3: {
				HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Contact - Polish Demo</title>
    ` + styles + `
</head>
<body>
    ` + nav + `
    <main>
        <h1>Contact</h1>
        <form method="POST" action="/contact">
            <label for="name">Name</label>
            <input id="name" type="text" name="name">
            <label for="email">Email</label>
            <input id="email" type="email" name="email">
            <label for="topic">Topic</label>
            <select id="topic" name="topic">
                <option>Sales</option>
                <option>Support</option>
            </select>
            <label for="message">Message</label>
            <textarea id="message" name="message"></textarea>
            <button type="submit">Send</button>
        </form>
    </main>
</body>
</html>`,
			},
		},
	}
}
