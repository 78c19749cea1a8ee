package server

const indexHTML = `<!doctype html>
<meta charset="utf-8" />
<title>imager WHEP player</title>
<style>body{font-family:system-ui;margin:2rem}video{width:80vw;max-width:1280px;background:#000}#info{color:#555}</style>
<div>
  <input id="ep" value="/whep" style="width:30rem"/>
  <button id="play">Play</button>
  <button id="stop" disabled>Stop</button>
  <div id="info"></div>
</div>
<video id="v" playsinline autoplay muted></video>
<p><img id="first" alt="" style="max-width:320px"/></p>
<script>
let pc=null, res=null; const $=id=>document.getElementById(id);
fetch('/frames').then(r=>r.ok?r.json():null).then(f=>{
  if(!f){$("info").textContent="synthetic source";return}
  $("info").textContent=f.count+" frames, "+f.width+"x"+f.height;
  $("first").src="/frames/0?format=jpeg";
});
$("play").onclick = async ()=>{
  const ep=$("ep").value; pc=new RTCPeerConnection();
  pc.addTransceiver('video',{direction:'recvonly'});
  pc.ontrack = ev=>{$("v").srcObject=ev.streams[0];}
  const offer = await pc.createOffer();
  await pc.setLocalDescription(offer);
  const resp=await fetch(ep,{method:'POST',headers:{'Content-Type':'application/sdp'},body:offer.sdp});
  res=resp.headers.get('Location'); const sdp=await resp.text();
  await pc.setRemoteDescription({type:'answer', sdp});
  $("stop").disabled=false;
}
$("stop").onclick = async ()=>{
  if(res){await fetch(res,{method:'DELETE'})} if(pc){pc.close()} $("stop").disabled=true;
}
</script>`
